package repository

import (
	"context"

	"github.com/kilo-studio/kilo-backend/internal/model"
)

const memberColumns = `m.id, m.first_name, m.last_name, m.email, m.role, m.created_at,
	p.id, p.name, p.price, p.monthly_lesson_count, p.for_children`

// MemberRepository handles member data access.
type MemberRepository struct {
	db DBTX
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetByID retrieves a member and their plan.
func (r *MemberRepository) GetByID(ctx context.Context, id int) (*model.Member, error) {
	return r.get(ctx, `SELECT `+memberColumns+`
		FROM members m JOIN plans p ON p.id = m.plan_id
		WHERE m.id = $1`, id)
}

// GetForUpdate retrieves a member and holds a row lock on it, so concurrent
// admissions for the same member see each other's enrollments.
func (r *MemberRepository) GetForUpdate(ctx context.Context, id int) (*model.Member, error) {
	return r.get(ctx, `SELECT `+memberColumns+`
		FROM members m JOIN plans p ON p.id = m.plan_id
		WHERE m.id = $1
		FOR UPDATE OF m`, id)
}

// ListChildPlanHolders retrieves every member whose plan is for children.
func (r *MemberRepository) ListChildPlanHolders(ctx context.Context) ([]model.Member, error) {
	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+`
		FROM members m JOIN plans p ON p.id = m.plan_id
		WHERE p.for_children
		ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := scanMember(rows, &m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Create inserts a member on an existing plan. A taken email returns ErrDuplicate.
func (r *MemberRepository) Create(ctx context.Context, m *model.Member) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO members (first_name, last_name, email, password_hash, role, plan_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		m.FirstName, m.LastName, m.Email, m.PasswordHash, m.Role, m.Plan.ID,
	).Scan(&m.ID, &m.CreatedAt)
	return translate(err)
}

// ListPlans retrieves every plan, cheapest first.
func (r *MemberRepository) ListPlans(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, price, monthly_lesson_count, for_children FROM plans ORDER BY price, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.MonthlyLessonCount, &p.ForChildren); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *MemberRepository) get(ctx context.Context, query string, id int) (*model.Member, error) {
	m := &model.Member{}
	if err := scanMember(r.db.QueryRow(ctx, query, id), m); err != nil {
		return nil, translate(err)
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner, m *model.Member) error {
	return row.Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Role, &m.CreatedAt,
		&m.Plan.ID, &m.Plan.Name, &m.Plan.Price, &m.Plan.MonthlyLessonCount, &m.Plan.ForChildren,
	)
}
