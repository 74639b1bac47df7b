package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
)

// QuotaService computes monthly lesson allowances. The used count is always
// derived from enrollment rows; nothing is cached.
type QuotaService struct {
	txm   repository.TxManager
	clock clock.Clock
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(txm repository.TxManager, clk clock.Clock) *QuotaService {
	return &QuotaService{txm: txm, clock: clk}
}

// CurrentMonth is the calendar month containing the clock's now.
func (s *QuotaService) CurrentMonth() schedule.Month {
	return schedule.MonthOf(s.clock.Now())
}

// RemainingMonthlyCount returns the member's plan allowance minus their
// enrollments in lessons starting this month. The result may be negative
// after a plan downgrade; callers treat <= 0 as exhausted.
func (s *QuotaService) RemainingMonthlyCount(ctx context.Context, memberID int) (int, error) {
	summary, err := s.Summary(ctx, memberID)
	if err != nil {
		return 0, err
	}
	return summary.Remaining, nil
}

// Summary returns allowance, used and remaining counts for the current month.
func (s *QuotaService) Summary(ctx context.Context, memberID int) (*model.QuotaSummary, error) {
	month := s.CurrentMonth()
	summary := &model.QuotaSummary{MemberID: memberID, Month: month.String()}

	err := s.txm.WithTx(ctx, func(r repository.Repos) error {
		member, err := r.Members.GetByID(ctx, memberID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("get member: %w", err)
		}

		used, err := s.used(ctx, r, member.ID, month)
		if err != nil {
			return err
		}
		summary.MonthlyCount = member.Plan.MonthlyLessonCount
		summary.UsedCount = used
		summary.Remaining = member.Plan.MonthlyLessonCount - used
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// remaining computes the allowance left in month using the caller's unit of work,
// so enrollments written earlier in the same transaction are counted.
func (s *QuotaService) remaining(ctx context.Context, r repository.Repos, member *model.Member, month schedule.Month) (int, error) {
	used, err := s.used(ctx, r, member.ID, month)
	if err != nil {
		return 0, err
	}
	return member.Plan.MonthlyLessonCount - used, nil
}

func (s *QuotaService) used(ctx context.Context, r repository.Repos, memberID int, month schedule.Month) (int, error) {
	n, err := r.Enrollments.CountForMemberBetween(ctx, memberID, month.Start(), month.End())
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return n, nil
}
