package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kilo-studio/kilo-backend/internal/model"
)

// lessonSelect joins the class for display fields. The class may have been
// deleted, so the join is outer and the class columns are coalesced.
const lessonSelect = `SELECT l.id, COALESCE(l.lesson_class_id, 0), l.start_at, l.end_at, l.created_at,
	COALESCE(c.name, ''), COALESCE(c.color, ''), COALESCE((c.rule->>'for_children')::boolean, FALSE),
	COALESCE(c.user_limit_count, 0),
	(SELECT COUNT(*) FROM lesson_members lm WHERE lm.lesson_id = l.id)
	FROM lessons l
	LEFT JOIN lesson_classes c ON c.id = l.lesson_class_id`

// LessonRepository handles lesson instance data access.
type LessonRepository struct {
	db DBTX
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(db DBTX) *LessonRepository {
	return &LessonRepository{db: db}
}

// GetByID retrieves a lesson by its ID.
func (r *LessonRepository) GetByID(ctx context.Context, id int) (*model.Lesson, error) {
	l := &model.Lesson{}
	if err := scanLesson(r.db.QueryRow(ctx, lessonSelect+` WHERE l.id = $1`, id), l); err != nil {
		return nil, translate(err)
	}
	return l, nil
}

// GetForUpdate retrieves a lesson and locks its row so capacity checks for
// the same lesson run one at a time.
func (r *LessonRepository) GetForUpdate(ctx context.Context, id int) (*model.Lesson, error) {
	l := &model.Lesson{}
	if err := scanLesson(r.db.QueryRow(ctx, lessonSelect+` WHERE l.id = $1 FOR UPDATE OF l`, id), l); err != nil {
		return nil, translate(err)
	}
	return l, nil
}

// CountBetween counts lessons starting in [from, to).
func (r *LessonRepository) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM lessons WHERE start_at >= $1 AND start_at < $2`, from, to,
	).Scan(&n)
	return n, err
}

// ListBetween retrieves lessons starting in [from, to).
func (r *LessonRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Lesson, error) {
	rows, err := r.db.Query(ctx,
		lessonSelect+` WHERE l.start_at >= $1 AND l.start_at < $2 ORDER BY l.start_at, l.id`, from, to)
	if err != nil {
		return nil, err
	}
	return collectLessons(rows)
}

// CreateBatch inserts all lessons in one round trip. Any failing insert fails
// the batch; the caller's transaction discards the rest.
func (r *LessonRepository) CreateBatch(ctx context.Context, lessons []*model.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, l := range lessons {
		b.Queue(
			`INSERT INTO lessons (lesson_class_id, start_at, end_at)
			 VALUES ($1, $2, $3)
			 RETURNING id, created_at`,
			l.LessonClassID, l.StartAt, l.EndAt,
		)
	}

	br := r.db.SendBatch(ctx, b)
	defer br.Close()

	for i, l := range lessons {
		if err := br.QueryRow().Scan(&l.ID, &l.CreatedAt); err != nil {
			return fmt.Errorf("insert lesson %d: %w", i, translate(err))
		}
	}
	return br.Close()
}

// Delete removes a lesson by its ID. Membership rows cascade.
func (r *LessonRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockMonth takes a transaction-scoped advisory lock keyed by the month.
func (r *LessonRepository) LockMonth(ctx context.Context, monthStart time.Time) error {
	_, err := r.db.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		"lessons:generate:"+monthStart.Format("2006-01"))
	return err
}

func scanLesson(row scanner, l *model.Lesson) error {
	return row.Scan(
		&l.ID, &l.LessonClassID, &l.StartAt, &l.EndAt, &l.CreatedAt,
		&l.ClassName, &l.Color, &l.ForChildren, &l.UserLimitCount, &l.MemberCount,
	)
}

func collectLessons(rows pgx.Rows) ([]model.Lesson, error) {
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := scanLesson(rows, &l); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}
