package model

// Plan is a membership plan granting a monthly lesson allowance.
type Plan struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Price              int    `json:"price"`
	MonthlyLessonCount int    `json:"monthly_lesson_count"`
	ForChildren        bool   `json:"for_children"`
}
