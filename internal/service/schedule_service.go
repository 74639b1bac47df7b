package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
)

// AutoEnrollSkip records a child member who was not enrolled into a generated lesson.
type AutoEnrollSkip struct {
	LessonID int    `json:"lesson_id"`
	MemberID int    `json:"member_id"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// GenerationResult is the outcome of one GenerateNextMonth run.
type GenerationResult struct {
	Month   string           `json:"month"`
	Lessons []model.Lesson   `json:"lessons"`
	Skipped []AutoEnrollSkip `json:"skipped"`
}

// ScheduleService materializes next month's lessons from lesson classes.
type ScheduleService struct {
	txm        repository.TxManager
	enrollment *EnrollmentService
	clock      clock.Clock
	log        zerolog.Logger
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(txm repository.TxManager, enrollment *EnrollmentService, clk clock.Clock, log zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		txm:        txm,
		enrollment: enrollment,
		clock:      clk,
		log:        log.With().Str("component", "schedule_service").Logger(),
	}
}

// TargetMonth is the calendar month after the clock's current month.
func (s *ScheduleService) TargetMonth() schedule.Month {
	return schedule.MonthOf(s.clock.Now()).Next()
}

// GenerateNextMonth creates one lesson per resolved slot of every lesson class
// for the month after now, then enrolls child-plan members into children's
// lessons. It runs once per month: if any lesson already starts in the target
// month it fails with ErrAlreadyGenerated. Any expansion or insert failure
// rolls the whole run back and returns ErrGenerationFailed.
//
// Auto-enroll walks lessons by start time, then members by ID. A member
// without remaining count for the target month, or a full lesson, is skipped
// and reported rather than failing the run.
func (s *ScheduleService) GenerateNextMonth(ctx context.Context) (*GenerationResult, error) {
	target := s.TargetMonth()
	result := &GenerationResult{Month: target.String()}

	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		result.Skipped = nil

		if err := r.Lessons.LockMonth(ctx, target.Start()); err != nil {
			return fmt.Errorf("lock month: %w", err)
		}

		existing, err := r.Lessons.CountBetween(ctx, target.Start(), target.End())
		if err != nil {
			return fmt.Errorf("count lessons: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyGenerated
		}

		classes, err := r.Classes.List(ctx)
		if err != nil {
			return fmt.Errorf("list lesson classes: %w", err)
		}

		lessons, err := expandClasses(classes, target)
		if err != nil {
			return err
		}

		if err := r.Lessons.CreateBatch(ctx, lessons); err != nil {
			return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}

		skipped, err := s.autoEnroll(ctx, r, classes, lessons, target)
		if err != nil {
			return err
		}
		result.Skipped = skipped

		created, err := r.Lessons.ListBetween(ctx, target.Start(), target.End())
		if err != nil {
			return fmt.Errorf("list created lessons: %w", err)
		}
		result.Lessons = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGenerationFailed) {
			s.log.Error().Err(err).Str("month", target.String()).Msg("Lesson generation failed")
		}
		return nil, err
	}

	for _, skip := range result.Skipped {
		s.log.Warn().
			Int("lesson_id", skip.LessonID).
			Int("member_id", skip.MemberID).
			Str("reason", skip.Reason).
			Msg("Auto-enroll skipped")
	}
	s.log.Info().
		Str("month", result.Month).
		Int("created", len(result.Lessons)).
		Int("skipped", len(result.Skipped)).
		Msg("Generated lessons for next month")

	return result, nil
}

// expandClasses resolves every class into lessons, ordered by start time then
// class ID so that generated IDs follow the calendar.
func expandClasses(classes []model.LessonClass, target schedule.Month) ([]*model.Lesson, error) {
	var lessons []*model.Lesson
	for _, c := range classes {
		slots, err := schedule.Expand(c.Rule, target)
		if err != nil {
			return nil, fmt.Errorf("%w: class %d: %w", ErrGenerationFailed, c.ID, err)
		}
		for _, slot := range slots {
			if !slot.EndAt.After(slot.StartAt) {
				return nil, fmt.Errorf("%w: class %d: end_at %s is not after start_at %s",
					ErrGenerationFailed, c.ID, slot.EndAt.Format("2006-01-02 15:04"), slot.StartAt.Format("2006-01-02 15:04"))
			}
			lessons = append(lessons, &model.Lesson{
				LessonClassID:  c.ID,
				StartAt:        slot.StartAt,
				EndAt:          slot.EndAt,
				ClassName:      c.Name,
				Color:          c.Color,
				ForChildren:    c.Rule.ForChildren,
				UserLimitCount: c.UserLimitCount,
			})
		}
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].StartAt.Equal(lessons[j].StartAt) {
			return lessons[i].LessonClassID < lessons[j].LessonClassID
		}
		return lessons[i].StartAt.Before(lessons[j].StartAt)
	})
	return lessons, nil
}

func (s *ScheduleService) autoEnroll(
	ctx context.Context,
	r repository.Repos,
	classes []model.LessonClass,
	lessons []*model.Lesson,
	target schedule.Month,
) ([]AutoEnrollSkip, error) {
	hasChildren := false
	for _, c := range classes {
		if c.Rule.ForChildren {
			hasChildren = true
			break
		}
	}
	if !hasChildren {
		return nil, nil
	}

	children, err := r.Members.ListChildPlanHolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list child members: %w", err)
	}

	var skipped []AutoEnrollSkip
	for _, lesson := range lessons {
		if !lesson.ForChildren {
			continue
		}
		for i := range children {
			member, err := r.Members.GetForUpdate(ctx, children[i].ID)
			if err != nil {
				return nil, fmt.Errorf("lock member %d: %w", children[i].ID, err)
			}

			_, err = s.enrollment.admit(ctx, r, member, lesson, AdminCaller.BypassesDeadline(), target)
			switch {
			case err == nil:
				lesson.MemberCount++
			case IsAdmissionDenied(err):
				skipped = append(skipped, AutoEnrollSkip{
					LessonID: lesson.ID,
					MemberID: member.ID,
					Reason:   err.Error(),
					Err:      err,
				})
			default:
				return nil, fmt.Errorf("auto-enroll member %d into lesson %d: %w", member.ID, lesson.ID, err)
			}
		}
	}
	return skipped, nil
}
