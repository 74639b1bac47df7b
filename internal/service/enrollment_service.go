package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
)

// EnrollmentService enforces join and leave admission rules for lessons.
type EnrollmentService struct {
	txm   repository.TxManager
	quota *QuotaService
	clock clock.Clock
	log   zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(txm repository.TxManager, quota *QuotaService, clk clock.Clock, log zerolog.Logger) *EnrollmentService {
	return &EnrollmentService{
		txm:   txm,
		quota: quota,
		clock: clk,
		log:   log.With().Str("component", "enrollment_service").Logger(),
	}
}

// Join enrolls memberID into lessonID. Checks run in order and the first
// failure wins: already enrolled, no remaining monthly count, lesson already
// started (skipped for admins), lesson full.
func (s *EnrollmentService) Join(ctx context.Context, caller Caller, memberID, lessonID int) (*model.Enrollment, error) {
	if !caller.CanActFor(memberID) {
		return nil, ErrForbidden
	}

	var enrollment *model.Enrollment
	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		member, lesson, err := s.load(ctx, r, memberID, lessonID)
		if err != nil {
			return err
		}

		enrollment, err = s.admit(ctx, r, member, lesson, caller.BypassesDeadline(), s.quota.CurrentMonth())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("member_id", memberID).
		Int("lesson_id", lessonID).
		Str("caller_role", string(caller.Role)).
		Msg("Member joined lesson")

	return enrollment, nil
}

// Leave removes memberID from lessonID. Checks: not enrolled, then lesson
// already started (skipped for admins).
func (s *EnrollmentService) Leave(ctx context.Context, caller Caller, memberID, lessonID int) error {
	if !caller.CanActFor(memberID) {
		return ErrForbidden
	}

	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		_, lesson, err := s.load(ctx, r, memberID, lessonID)
		if err != nil {
			return err
		}

		enrolled, err := r.Enrollments.Exists(ctx, lesson.ID, memberID)
		if err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if !enrolled {
			return ErrNotEnrolled
		}

		if !caller.BypassesDeadline() && lesson.Started(s.clock.Now()) {
			return ErrPastDeadline
		}

		n, err := r.Enrollments.Delete(ctx, lesson.ID, memberID)
		if err != nil {
			return fmt.Errorf("delete enrollment: %w", err)
		}
		switch {
		case n == 0:
			return ErrNotEnrolled
		case n > 1:
			// Returning an error rolls back the over-delete.
			return fmt.Errorf("%w: lesson %d member %d (%d rows)", ErrEnrollmentIntegrity, lesson.ID, memberID, n)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEnrollmentIntegrity) {
			s.log.Error().Err(err).Msg("Enrollment integrity fault")
		}
		return err
	}

	s.log.Debug().
		Int("member_id", memberID).
		Int("lesson_id", lessonID).
		Str("caller_role", string(caller.Role)).
		Msg("Member left lesson")

	return nil
}

// LeaveAll removes every enrollment of a lesson. A lesson without members is a no-op.
func (s *EnrollmentService) LeaveAll(ctx context.Context, lessonID int) (int64, error) {
	var removed int64
	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		var err error
		removed, err = s.leaveAll(ctx, r, lessonID)
		return err
	})
	return removed, err
}

// MemberLessons lists the lessons memberID is enrolled in during month.
func (s *EnrollmentService) MemberLessons(ctx context.Context, caller Caller, memberID int, month schedule.Month) ([]model.Lesson, error) {
	if !caller.CanActFor(memberID) {
		return nil, ErrForbidden
	}

	var lessons []model.Lesson
	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		var err error
		lessons, err = r.Enrollments.ListLessonsForMember(ctx, memberID, month.Start(), month.End())
		if err != nil {
			return fmt.Errorf("list member lessons: %w", err)
		}
		return nil
	})
	return lessons, err
}

func (s *EnrollmentService) leaveAll(ctx context.Context, r repository.Repos, lessonID int) (int64, error) {
	n, err := r.Enrollments.DeleteForLesson(ctx, lessonID)
	if err != nil {
		return 0, fmt.Errorf("delete lesson enrollments: %w", err)
	}
	return n, nil
}

// load locks the member row then the lesson row.
func (s *EnrollmentService) load(ctx context.Context, r repository.Repos, memberID, lessonID int) (*model.Member, *model.Lesson, error) {
	member, err := r.Members.GetForUpdate(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrMemberNotFound
		}
		return nil, nil, fmt.Errorf("get member: %w", err)
	}

	lesson, err := r.Lessons.GetForUpdate(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrLessonNotFound
		}
		return nil, nil, fmt.Errorf("get lesson: %w", err)
	}

	return member, lesson, nil
}

// admit is the single admission path shared by Join and schedule generation.
// quotaMonth is the calendar month whose enrollments count against the plan.
func (s *EnrollmentService) admit(
	ctx context.Context,
	r repository.Repos,
	member *model.Member,
	lesson *model.Lesson,
	bypassDeadline bool,
	quotaMonth schedule.Month,
) (*model.Enrollment, error) {
	enrolled, err := r.Enrollments.Exists(ctx, lesson.ID, member.ID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	remaining, err := s.quota.remaining(ctx, r, member, quotaMonth)
	if err != nil {
		return nil, err
	}
	if remaining < 1 {
		return nil, ErrQuotaExceeded
	}

	if !bypassDeadline && lesson.Started(s.clock.Now()) {
		return nil, ErrPastDeadline
	}

	if lesson.Full() {
		return nil, ErrLessonFull
	}

	enrollment := &model.Enrollment{LessonID: lesson.ID, MemberID: member.ID}
	if err := r.Enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return enrollment, nil
}
