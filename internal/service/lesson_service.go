package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
)

// LessonService handles lesson listing and removal.
type LessonService struct {
	txm        repository.TxManager
	enrollment *EnrollmentService
	log        zerolog.Logger
}

// NewLessonService creates a new LessonService.
func NewLessonService(txm repository.TxManager, enrollment *EnrollmentService, log zerolog.Logger) *LessonService {
	return &LessonService{
		txm:        txm,
		enrollment: enrollment,
		log:        log.With().Str("component", "lesson_service").Logger(),
	}
}

// ListByMonth retrieves every lesson starting in month, with enrollment counts.
func (s *LessonService) ListByMonth(ctx context.Context, month schedule.Month) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		var err error
		lessons, err = r.Lessons.ListBetween(ctx, month.Start(), month.End())
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		return nil
	})
	return lessons, err
}

// Get retrieves a single lesson.
func (s *LessonService) Get(ctx context.Context, lessonID int) (*model.Lesson, error) {
	var lesson *model.Lesson
	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		var err error
		lesson, err = r.Lessons.GetByID(ctx, lessonID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLessonNotFound
		}
		return err
	})
	return lesson, err
}

// Delete removes a lesson after releasing all of its enrollments.
func (s *LessonService) Delete(ctx context.Context, lessonID int) error {
	var released int64
	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		if _, err := r.Lessons.GetForUpdate(ctx, lessonID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLessonNotFound
			}
			return fmt.Errorf("get lesson: %w", err)
		}

		var err error
		released, err = s.enrollment.leaveAll(ctx, r, lessonID)
		if err != nil {
			return err
		}

		if err := r.Lessons.Delete(ctx, lessonID); err != nil {
			return fmt.Errorf("delete lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int("lesson_id", lessonID).
		Int64("released_enrollments", released).
		Msg("Lesson deleted")
	return nil
}
