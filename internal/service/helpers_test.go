package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/repository/memory"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

var (
	regularPlan = model.Plan{ID: 1, Name: "Regular", Price: 8000, MonthlyLessonCount: 2}
	childPlan   = model.Plan{ID: 2, Name: "Kids", Price: 6000, MonthlyLessonCount: 1, ForChildren: true}
	emptyPlan   = model.Plan{ID: 3, Name: "Paused", MonthlyLessonCount: 0}
)

type fixture struct {
	store      *memory.Store
	clock      *clock.Fixed
	quota      *service.QuotaService
	enrollment *service.EnrollmentService
	schedule   *service.ScheduleService
	lessons    *service.LessonService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	return newFixtureWithTx(t, now, nil)
}

// newFixtureWithTx lets a test decorate the transaction manager.
func newFixtureWithTx(t *testing.T, now time.Time, wrap func(repository.TxManager) repository.TxManager) *fixture {
	t.Helper()

	store := memory.New()
	var txm repository.TxManager = store
	if wrap != nil {
		txm = wrap(store)
	}

	clk := clock.NewFixed(now)
	log := zerolog.Nop()
	quota := service.NewQuotaService(txm, clk)
	enrollment := service.NewEnrollmentService(txm, quota, clk, log)

	return &fixture{
		store:      store,
		clock:      clk,
		quota:      quota,
		enrollment: enrollment,
		schedule:   service.NewScheduleService(txm, enrollment, clk, log),
		lessons:    service.NewLessonService(txm, enrollment, log),
	}
}

func (f *fixture) member(id int, role model.Role, plan model.Plan) service.Caller {
	f.store.PutMember(model.Member{
		ID:        id,
		FirstName: "Taro",
		LastName:  "Yamada",
		Email:     "member@example.com",
		Role:      role,
		Plan:      plan,
	})
	return service.Caller{MemberID: id, Role: role}
}

func (f *fixture) class(id int, limit int, rule model.RecurrenceRule) {
	f.store.PutClass(model.LessonClass{ID: id, Name: "Class", Color: "#3f51b5", UserLimitCount: limit, Rule: rule})
}

func (f *fixture) lessonAt(classID int, start time.Time) int {
	return f.store.AddLesson(classID, start, start.Add(time.Hour))
}

func (f *fixture) remaining(t *testing.T, memberID int) int {
	t.Helper()
	n, err := f.quota.RemainingMonthlyCount(context.Background(), memberID)
	if err != nil {
		t.Fatalf("RemainingMonthlyCount: %v", err)
	}
	return n
}
