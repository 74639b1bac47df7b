// Package memory is an in-process implementation of the repository stores.
// Transactions are serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
)

var _ repository.TxManager = (*Store)(nil)

type pair struct {
	lessonID int
	memberID int
}

type state struct {
	members      map[int]model.Member
	classes      map[int]model.LessonClass
	lessons      map[int]model.Lesson
	enrollments  map[pair]time.Time
	nextLessonID int
}

func (s *state) clone() *state {
	c := &state{
		members:      make(map[int]model.Member, len(s.members)),
		classes:      make(map[int]model.LessonClass, len(s.classes)),
		lessons:      make(map[int]model.Lesson, len(s.lessons)),
		enrollments:  make(map[pair]time.Time, len(s.enrollments)),
		nextLessonID: s.nextLessonID,
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.classes {
		c.classes[k] = v
	}
	for k, v := range s.lessons {
		c.lessons[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	return c
}

// Store holds all records in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: &state{
		members:      make(map[int]model.Member),
		classes:      make(map[int]model.LessonClass),
		lessons:      make(map[int]model.Lesson),
		enrollments:  make(map[pair]time.Time),
		nextLessonID: 1,
	}}
}

// WithTx runs fn with exclusive access. If fn fails, every write it made is discarded.
func (s *Store) WithTx(_ context.Context, fn func(r repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.repos()); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) repos() repository.Repos {
	return repository.Repos{
		Members:     memberStore{s},
		Classes:     classStore{s},
		Lessons:     lessonStore{s},
		Enrollments: enrollmentStore{s},
	}
}

// ─── Seeding helpers ───────────────────────────────────────────────────

// PutMember inserts or replaces a member.
func (s *Store) PutMember(m model.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.members[m.ID] = m
}

// PutClass inserts or replaces a lesson class.
func (s *Store) PutClass(c model.LessonClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.classes[c.ID] = c
}

// AddLesson inserts a lesson and returns its ID.
func (s *Store) AddLesson(classID int, start, end time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.nextLessonID
	s.st.nextLessonID++
	s.st.lessons[id] = model.Lesson{ID: id, LessonClassID: classID, StartAt: start, EndAt: end, CreatedAt: start}
	return id
}

// LessonCount returns the number of stored lessons.
func (s *Store) LessonCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.lessons)
}

// EnrollmentCount returns the number of stored enrollments.
func (s *Store) EnrollmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.enrollments)
}

// ─── Read-side decoration ──────────────────────────────────────────────

func (s *Store) decorate(l model.Lesson) model.Lesson {
	if c, ok := s.st.classes[l.LessonClassID]; ok {
		l.ClassName = c.Name
		l.Color = c.Color
		l.ForChildren = c.Rule.ForChildren
		l.UserLimitCount = c.UserLimitCount
	}
	l.MemberCount = 0
	for p := range s.st.enrollments {
		if p.lessonID == l.ID {
			l.MemberCount++
		}
	}
	return l
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func sortLessons(lessons []model.Lesson) {
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].StartAt.Equal(lessons[j].StartAt) {
			return lessons[i].ID < lessons[j].ID
		}
		return lessons[i].StartAt.Before(lessons[j].StartAt)
	})
}

// ─── Members ───────────────────────────────────────────────────────────

type memberStore struct{ s *Store }

func (m memberStore) GetByID(_ context.Context, id int) (*model.Member, error) {
	mem, ok := m.s.st.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &mem, nil
}

func (m memberStore) GetForUpdate(ctx context.Context, id int) (*model.Member, error) {
	return m.GetByID(ctx, id)
}

func (m memberStore) ListChildPlanHolders(_ context.Context) ([]model.Member, error) {
	var out []model.Member
	for _, mem := range m.s.st.members {
		if mem.IsChild() {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── Classes ───────────────────────────────────────────────────────────

type classStore struct{ s *Store }

func (c classStore) List(_ context.Context) ([]model.LessonClass, error) {
	out := make([]model.LessonClass, 0, len(c.s.st.classes))
	for _, cls := range c.s.st.classes {
		out = append(out, cls)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── Lessons ───────────────────────────────────────────────────────────

type lessonStore struct{ s *Store }

func (l lessonStore) GetByID(_ context.Context, id int) (*model.Lesson, error) {
	les, ok := l.s.st.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	les = l.s.decorate(les)
	return &les, nil
}

func (l lessonStore) GetForUpdate(ctx context.Context, id int) (*model.Lesson, error) {
	return l.GetByID(ctx, id)
}

func (l lessonStore) CountBetween(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, les := range l.s.st.lessons {
		if inRange(les.StartAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (l lessonStore) ListBetween(_ context.Context, from, to time.Time) ([]model.Lesson, error) {
	var out []model.Lesson
	for _, les := range l.s.st.lessons {
		if inRange(les.StartAt, from, to) {
			out = append(out, l.s.decorate(les))
		}
	}
	sortLessons(out)
	return out, nil
}

// CreateBatch enforces the same constraints as the lessons table:
// end after start, and one lesson per class and start time.
func (l lessonStore) CreateBatch(_ context.Context, lessons []*model.Lesson) error {
	for i, les := range lessons {
		if !les.EndAt.After(les.StartAt) {
			return fmt.Errorf("insert lesson %d: end_at must be after start_at", i)
		}
		for _, existing := range l.s.st.lessons {
			if existing.LessonClassID == les.LessonClassID && existing.StartAt.Equal(les.StartAt) {
				return fmt.Errorf("insert lesson %d: %w", i, repository.ErrDuplicate)
			}
		}
		les.ID = l.s.st.nextLessonID
		les.CreatedAt = time.Now()
		l.s.st.nextLessonID++
		l.s.st.lessons[les.ID] = model.Lesson{
			ID:            les.ID,
			LessonClassID: les.LessonClassID,
			StartAt:       les.StartAt,
			EndAt:         les.EndAt,
			CreatedAt:     les.CreatedAt,
		}
	}
	return nil
}

func (l lessonStore) Delete(_ context.Context, id int) error {
	if _, ok := l.s.st.lessons[id]; !ok {
		return repository.ErrNotFound
	}
	delete(l.s.st.lessons, id)
	for p := range l.s.st.enrollments {
		if p.lessonID == id {
			delete(l.s.st.enrollments, p)
		}
	}
	return nil
}

// LockMonth is a no-op: transactions are already serialized.
func (l lessonStore) LockMonth(_ context.Context, _ time.Time) error {
	return nil
}

// ─── Enrollments ───────────────────────────────────────────────────────

type enrollmentStore struct{ s *Store }

func (e enrollmentStore) Exists(_ context.Context, lessonID, memberID int) (bool, error) {
	_, ok := e.s.st.enrollments[pair{lessonID, memberID}]
	return ok, nil
}

func (e enrollmentStore) CountForMemberBetween(_ context.Context, memberID int, from, to time.Time) (int, error) {
	n := 0
	for p := range e.s.st.enrollments {
		if p.memberID != memberID {
			continue
		}
		if les, ok := e.s.st.lessons[p.lessonID]; ok && inRange(les.StartAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (e enrollmentStore) Create(_ context.Context, en *model.Enrollment) error {
	p := pair{en.LessonID, en.MemberID}
	if _, ok := e.s.st.enrollments[p]; ok {
		return fmt.Errorf("%w: lesson_members_pkey", repository.ErrDuplicate)
	}
	if _, ok := e.s.st.lessons[en.LessonID]; !ok {
		return repository.ErrNotFound
	}
	en.CreatedAt = time.Now()
	e.s.st.enrollments[p] = en.CreatedAt
	return nil
}

func (e enrollmentStore) Delete(_ context.Context, lessonID, memberID int) (int64, error) {
	p := pair{lessonID, memberID}
	if _, ok := e.s.st.enrollments[p]; !ok {
		return 0, nil
	}
	delete(e.s.st.enrollments, p)
	return 1, nil
}

func (e enrollmentStore) DeleteForLesson(_ context.Context, lessonID int) (int64, error) {
	var n int64
	for p := range e.s.st.enrollments {
		if p.lessonID == lessonID {
			delete(e.s.st.enrollments, p)
			n++
		}
	}
	return n, nil
}

func (e enrollmentStore) ListLessonsForMember(_ context.Context, memberID int, from, to time.Time) ([]model.Lesson, error) {
	var out []model.Lesson
	for p := range e.s.st.enrollments {
		if p.memberID != memberID {
			continue
		}
		if les, ok := e.s.st.lessons[p.lessonID]; ok && inRange(les.StartAt, from, to) {
			out = append(out, e.s.decorate(les))
		}
	}
	sortLessons(out)
	return out, nil
}
