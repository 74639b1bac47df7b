package repository

import (
	"context"

	"github.com/kilo-studio/kilo-backend/internal/model"
)

// LessonClassRepository handles lesson class data access.
type LessonClassRepository struct {
	db DBTX
}

// NewLessonClassRepository creates a new LessonClassRepository.
func NewLessonClassRepository(db DBTX) *LessonClassRepository {
	return &LessonClassRepository{db: db}
}

// List retrieves all lesson classes. The rule column is JSONB and decodes
// straight into model.RecurrenceRule.
func (r *LessonClassRepository) List(ctx context.Context) ([]model.LessonClass, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, color, user_limit_count, rule, created_at
		 FROM lesson_classes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.LessonClass
	for rows.Next() {
		var c model.LessonClass
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.UserLimitCount, &c.Rule, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// Create inserts a new lesson class.
func (r *LessonClassRepository) Create(ctx context.Context, c *model.LessonClass) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO lesson_classes (name, description, color, user_limit_count, rule)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.Name, c.Description, c.Color, c.UserLimitCount, c.Rule,
	).Scan(&c.ID, &c.CreatedAt)
}
