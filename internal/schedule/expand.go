package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilo-studio/kilo-backend/internal/model"
)

// ErrInvalidRule is returned for rules that cannot be resolved to slots.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Slot is one resolved occurrence of a rule.
type Slot struct {
	StartAt time.Time
	EndAt   time.Time
}

// Expand resolves rule into the slots that start inside m, ordered by start time.
// The result depends only on rule and m. A non-positive duration yields slots
// whose end is not after their start; callers validate that.
func Expand(rule model.RecurrenceRule, m Month) ([]Slot, error) {
	if rule.Weekday < time.Sunday || rule.Weekday > time.Saturday {
		return nil, fmt.Errorf("%w: weekday %d", ErrInvalidRule, rule.Weekday)
	}
	clock, err := time.Parse("15:04", rule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start time %q", ErrInvalidRule, rule.StartTime)
	}
	for _, w := range rule.WeeksOfMonth {
		if w != -1 && (w < 1 || w > 5) {
			return nil, fmt.Errorf("%w: week of month %d", ErrInvalidRule, w)
		}
	}
	if rule.IntervalWeeks < 0 {
		return nil, fmt.Errorf("%w: interval %d", ErrInvalidRule, rule.IntervalWeeks)
	}

	first := m.Start()
	offset := (int(rule.Weekday) - int(first.Weekday()) + 7) % 7

	var days []int
	for d := 1 + offset; d <= m.Days(); d += 7 {
		days = append(days, d)
	}

	duration := time.Duration(rule.DurationMinutes) * time.Minute
	slots := make([]Slot, 0, len(days))
	for i, d := range days {
		nth := i + 1
		if !keepOccurrence(rule, nth, len(days)) {
			continue
		}
		start := time.Date(m.Year, m.Month, d, clock.Hour(), clock.Minute(), 0, 0, m.location())
		slots = append(slots, Slot{StartAt: start, EndAt: start.Add(duration)})
	}

	return slots, nil
}

func keepOccurrence(rule model.RecurrenceRule, nth, total int) bool {
	if rule.IntervalWeeks > 1 && (nth-1)%rule.IntervalWeeks != 0 {
		return false
	}
	if len(rule.WeeksOfMonth) == 0 {
		return true
	}
	for _, w := range rule.WeeksOfMonth {
		if w == nth || (w == -1 && nth == total) {
			return true
		}
	}
	return false
}
