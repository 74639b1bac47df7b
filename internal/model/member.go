package model

import "time"

// Member is a registered user who can be enrolled into lessons.
type Member struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Plan         Plan      `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
}

// Name returns the display name, family name first.
func (m *Member) Name() string {
	return m.LastName + " " + m.FirstName
}

// IsChild reports whether the member holds a children's plan.
func (m *Member) IsChild() bool {
	return m.Plan.ForChildren
}

// QuotaSummary describes a member's lesson allowance for one calendar month.
type QuotaSummary struct {
	MemberID     int    `json:"member_id"`
	Month        string `json:"month"`
	MonthlyCount int    `json:"monthly_lesson_count"`
	UsedCount    int    `json:"used_count"`
	Remaining    int    `json:"remaining_monthly_count"`
}
