package model

import "time"

// Lesson is one dated occurrence of a LessonClass.
type Lesson struct {
	ID            int       `json:"id"`
	LessonClassID int       `json:"lesson_class_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	CreatedAt     time.Time `json:"created_at"`

	// Read-side fields joined from the class and enrollment tables.
	ClassName      string `json:"class_name,omitempty"`
	Color          string `json:"color,omitempty"`
	ForChildren    bool   `json:"for_children"`
	UserLimitCount int    `json:"user_limit_count"`
	MemberCount    int    `json:"member_count"`
}

// Started reports whether the lesson's start time is before now.
func (l *Lesson) Started(now time.Time) bool {
	return now.After(l.StartAt)
}

// Full reports whether the lesson has reached its class capacity.
func (l *Lesson) Full() bool {
	return l.UserLimitCount > 0 && l.MemberCount >= l.UserLimitCount
}

// Enrollment links one member to one lesson.
type Enrollment struct {
	LessonID  int       `json:"lesson_id"`
	MemberID  int       `json:"member_id"`
	CreatedAt time.Time `json:"created_at"`
}
