package repository

import (
	"context"
	"time"

	"github.com/kilo-studio/kilo-backend/internal/model"
)

// EnrollmentRepository handles lesson_members data access.
// (lesson_id, member_id) is the primary key, so a pair is stored at most once.
type EnrollmentRepository struct {
	db DBTX
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Exists reports whether the member is enrolled in the lesson.
func (r *EnrollmentRepository) Exists(ctx context.Context, lessonID, memberID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM lesson_members WHERE lesson_id = $1 AND member_id = $2)`,
		lessonID, memberID,
	).Scan(&exists)
	return exists, err
}

// CountForMemberBetween counts the member's enrollments in lessons starting in [from, to).
func (r *EnrollmentRepository) CountForMemberBetween(ctx context.Context, memberID int, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM lesson_members lm
		 JOIN lessons l ON l.id = lm.lesson_id
		 WHERE lm.member_id = $1 AND l.start_at >= $2 AND l.start_at < $3`,
		memberID, from, to,
	).Scan(&n)
	return n, err
}

// Create inserts an enrollment. A concurrent duplicate surfaces as ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO lesson_members (lesson_id, member_id)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		e.LessonID, e.MemberID,
	).Scan(&e.CreatedAt)
	return translate(err)
}

// Delete removes one enrollment and returns the affected row count.
func (r *EnrollmentRepository) Delete(ctx context.Context, lessonID, memberID int) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM lesson_members WHERE lesson_id = $1 AND member_id = $2`,
		lessonID, memberID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteForLesson removes every enrollment of a lesson.
func (r *EnrollmentRepository) DeleteForLesson(ctx context.Context, lessonID int) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM lesson_members WHERE lesson_id = $1`, lessonID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListLessonsForMember retrieves the member's lessons starting in [from, to).
func (r *EnrollmentRepository) ListLessonsForMember(ctx context.Context, memberID int, from, to time.Time) ([]model.Lesson, error) {
	rows, err := r.db.Query(ctx,
		lessonSelect+`
		 JOIN lesson_members me ON me.lesson_id = l.id AND me.member_id = $1
		 WHERE l.start_at >= $2 AND l.start_at < $3
		 ORDER BY l.start_at, l.id`,
		memberID, from, to)
	if err != nil {
		return nil, err
	}
	return collectLessons(rows)
}
