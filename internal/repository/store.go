package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kilo-studio/kilo-backend/internal/model"
)

// Store-level errors. Implementations translate driver errors into these.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// MemberStore reads member accounts together with their plan.
type MemberStore interface {
	GetByID(ctx context.Context, id int) (*model.Member, error)
	// GetForUpdate locks the member row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int) (*model.Member, error)
	// ListChildPlanHolders returns members on a children's plan, ordered by ID.
	ListChildPlanHolders(ctx context.Context) ([]model.Member, error)
}

// LessonClassStore reads lesson-class templates.
type LessonClassStore interface {
	// List returns every class ordered by ID.
	List(ctx context.Context) ([]model.LessonClass, error)
}

// LessonStore reads and writes lesson instances.
type LessonStore interface {
	GetByID(ctx context.Context, id int) (*model.Lesson, error)
	// GetForUpdate locks the lesson row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int) (*model.Lesson, error)
	// CountBetween counts lessons with from <= start_at < to.
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	// ListBetween returns lessons with from <= start_at < to, ordered by start_at then ID.
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Lesson, error)
	// CreateBatch inserts all lessons, filling their IDs.
	CreateBatch(ctx context.Context, lessons []*model.Lesson) error
	Delete(ctx context.Context, id int) error
	// LockMonth serializes schedule generation for the month starting at monthStart.
	LockMonth(ctx context.Context, monthStart time.Time) error
}

// EnrollmentStore reads and writes lesson membership rows.
type EnrollmentStore interface {
	Exists(ctx context.Context, lessonID, memberID int) (bool, error)
	// CountForMemberBetween counts the member's enrollments in lessons with from <= start_at < to.
	CountForMemberBetween(ctx context.Context, memberID int, from, to time.Time) (int, error)
	// Create returns ErrDuplicate when the pair is already enrolled.
	Create(ctx context.Context, e *model.Enrollment) error
	// Delete removes the pair and reports how many rows were removed.
	Delete(ctx context.Context, lessonID, memberID int) (int64, error)
	DeleteForLesson(ctx context.Context, lessonID int) (int64, error)
	// ListLessonsForMember returns the member's lessons with from <= start_at < to.
	ListLessonsForMember(ctx context.Context, memberID int, from, to time.Time) ([]model.Lesson, error)
}

// Repos groups the stores bound to one unit of work.
type Repos struct {
	Members     MemberStore
	Classes     LessonClassStore
	Lessons     LessonStore
	Enrollments EnrollmentStore
}

// TxManager runs fn inside a transaction. A non-nil error from fn rolls back
// every write made through the Repos it received.
type TxManager interface {
	WithTx(ctx context.Context, fn func(r Repos) error) error
}
