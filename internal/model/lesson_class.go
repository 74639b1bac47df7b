package model

import "time"

// LessonClass is the recurring template lessons are generated from.
type LessonClass struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	// UserLimitCount caps enrollments per generated lesson. Zero means unlimited.
	UserLimitCount int            `json:"user_limit_count"`
	Rule           RecurrenceRule `json:"rule"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RecurrenceRule is a weekly rule resolved against one calendar month.
type RecurrenceRule struct {
	Weekday time.Weekday `json:"weekday"`
	// StartTime is the local wall-clock start, "15:04".
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	// IntervalWeeks keeps every n-th matching weekday of the month,
	// counted from the first one. 0 and 1 both mean every week.
	IntervalWeeks int `json:"interval_weeks,omitempty"`
	// WeeksOfMonth restricts the rule to the n-th occurrences of Weekday
	// (1..5). -1 selects the last occurrence.
	WeeksOfMonth []int `json:"weeks_of_month,omitempty"`
	ForChildren  bool  `json:"for_children"`
}
