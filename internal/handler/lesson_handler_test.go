package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/handler"
	"github.com/kilo-studio/kilo-backend/internal/model"
	"github.com/kilo-studio/kilo-backend/internal/repository/memory"
	"github.com/kilo-studio/kilo-backend/internal/router"
	"github.com/kilo-studio/kilo-backend/internal/service"
	"github.com/kilo-studio/kilo-backend/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

var now = time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)

type server struct {
	engine *gin.Engine
	store  *memory.Store
	auth   *service.AuthService
}

func newServer(t *testing.T) *server {
	t.Helper()

	cfg := &config.Config{
		GinMode:   gin.TestMode,
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
		Location:  time.UTC,
	}
	log := zerolog.Nop()
	store := memory.New()
	clk := clock.NewFixed(now)

	quota := service.NewQuotaService(store, clk)
	enrollment := service.NewEnrollmentService(store, quota, clk, log)
	lessons := service.NewLessonService(store, enrollment, log)
	sched := service.NewScheduleService(store, enrollment, clk, log)
	auth := service.NewAuthService(cfg)

	handlers := &router.Handlers{
		Lesson: handler.NewLessonHandler(lessons, enrollment, sched, quota),
		Member: handler.NewMemberHandler(enrollment, quota),
	}

	plan := model.Plan{ID: 1, Name: "Regular", MonthlyLessonCount: 2}
	store.PutMember(model.Member{ID: 1, FirstName: "Hanako", Role: model.RoleNormal, Plan: plan})
	store.PutMember(model.Member{ID: 9, FirstName: "Admin", Role: model.RoleAdmin, Plan: plan})

	return &server{
		engine: router.SetupRouter(auth, handlers, nil, cfg, log),
		store:  store,
		auth:   auth,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func (s *server) do(t *testing.T, method, path string, memberID int, role model.Role, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if memberID > 0 {
		token, err := s.auth.GenerateToken(memberID, role)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestJoinAndLeave(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Yoga"})
	id := s.store.AddLesson(1, now.Add(2*time.Hour), now.Add(3*time.Hour))
	path := "/api/v1/lessons/" + itoa(id)

	if code, env := s.do(t, http.MethodPost, path+"/join", 1, model.RoleNormal, nil); code != http.StatusCreated {
		t.Fatalf("join: got %d %s, want 201", code, errCode(env))
	}

	code, env := s.do(t, http.MethodPost, path+"/join", 1, model.RoleNormal, nil)
	if code != http.StatusUnprocessableEntity || errCode(env) != "ALREADY_JOINED" {
		t.Fatalf("second join: got %d %s, want 422 ALREADY_JOINED", code, errCode(env))
	}

	if code, env := s.do(t, http.MethodDelete, path+"/leave", 1, model.RoleNormal, nil); code != http.StatusOK {
		t.Fatalf("leave: got %d %s, want 200", code, errCode(env))
	}

	code, env = s.do(t, http.MethodDelete, path+"/leave", 1, model.RoleNormal, nil)
	if code != http.StatusUnprocessableEntity || errCode(env) != "NOT_JOINED" {
		t.Fatalf("second leave: got %d %s, want 422 NOT_JOINED", code, errCode(env))
	}
}

func TestChunkedEmptyBodyIsAccepted(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Yoga"})
	id := s.store.AddLesson(1, now.Add(2*time.Hour), now.Add(3*time.Hour))
	path := "/api/v1/lessons/" + itoa(id)

	token, err := s.auth.GenerateToken(1, model.RoleNormal)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	for _, tt := range []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, path + "/join", http.StatusCreated},
		{http.MethodDelete, path + "/leave", http.StatusOK},
	} {
		// A reader of unknown size leaves ContentLength at -1.
		req := httptest.NewRequest(tt.method, tt.path, io.MultiReader())
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if req.ContentLength != -1 {
			t.Fatalf("ContentLength = %d, want -1", req.ContentLength)
		}

		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s %s: got %d %s, want %d", tt.method, tt.path, rec.Code, rec.Body.String(), tt.want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/classes", 0, "", nil)
	if code != http.StatusNotFound || errCode(env) != "NOT_FOUND" {
		t.Fatalf("got %d %s, want 404 NOT_FOUND", code, errCode(env))
	}
}

func TestDeadlineCodesDifferByOperation(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Yoga"})
	id := s.store.AddLesson(1, now.Add(-time.Hour), now)
	path := "/api/v1/lessons/" + itoa(id)

	code, env := s.do(t, http.MethodPost, path+"/join", 1, model.RoleNormal, nil)
	if code != http.StatusUnprocessableEntity || errCode(env) != "CANT_JOIN" {
		t.Fatalf("join: got %d %s, want 422 CANT_JOIN", code, errCode(env))
	}

	// An admin can still add the member after the start.
	if code, env := s.do(t, http.MethodPost, path+"/join", 9, model.RoleAdmin, map[string]int{"member_id": 1}); code != http.StatusCreated {
		t.Fatalf("admin join: got %d %s, want 201", code, errCode(env))
	}

	code, env = s.do(t, http.MethodDelete, path+"/leave", 1, model.RoleNormal, nil)
	if code != http.StatusUnprocessableEntity || errCode(env) != "CANT_LEAVE" {
		t.Fatalf("leave: got %d %s, want 422 CANT_LEAVE", code, errCode(env))
	}
}

func TestMemberCannotActForOthers(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Yoga"})
	id := s.store.AddLesson(1, now.Add(time.Hour), now.Add(2*time.Hour))

	code, env := s.do(t, http.MethodPost, "/api/v1/lessons/"+itoa(id)+"/join", 1, model.RoleNormal, map[string]int{"member_id": 9})
	if code != http.StatusForbidden || errCode(env) != "FORBIDDEN" {
		t.Fatalf("got %d %s, want 403 FORBIDDEN", code, errCode(env))
	}
}

func TestRequestsRequireToken(t *testing.T) {
	s := newServer(t)
	code, env := s.do(t, http.MethodGet, "/api/v1/lessons", 0, "", nil)
	if code != http.StatusUnauthorized || errCode(env) != "TOKEN_REQUIRED" {
		t.Fatalf("got %d %s, want 401 TOKEN_REQUIRED", code, errCode(env))
	}
}

func TestInvalidLessonID(t *testing.T) {
	s := newServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/lessons/abc/join", 1, model.RoleNormal, nil)
	if code != http.StatusBadRequest || errCode(env) != "INVALID_ID" {
		t.Fatalf("got %d %s, want 400 INVALID_ID", code, errCode(env))
	}
}

func TestGenerateLessons(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Yoga", Rule: model.RecurrenceRule{
		Weekday:         time.Tuesday,
		StartTime:       "18:00",
		DurationMinutes: 60,
	}})

	code, env := s.do(t, http.MethodPost, "/api/v1/lessons/generate", 1, model.RoleNormal, nil)
	if code != http.StatusForbidden || errCode(env) != "ADMIN_ACCESS_ONLY" {
		t.Fatalf("member: got %d %s, want 403 ADMIN_ACCESS_ONLY", code, errCode(env))
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/lessons/generate", 9, model.RoleAdmin, nil)
	if code != http.StatusCreated {
		t.Fatalf("admin: got %d %s, want 201", code, errCode(env))
	}
	var result service.GenerationResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Month != "2024-02" || len(result.Lessons) != 4 {
		t.Errorf("result: month %q with %d lessons, want 2024-02 with 4", result.Month, len(result.Lessons))
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/lessons/generate", 9, model.RoleAdmin, nil)
	if code != http.StatusConflict || errCode(env) != "ALREADY_GENERATED" {
		t.Fatalf("second run: got %d %s, want 409 ALREADY_GENERATED", code, errCode(env))
	}
}

func TestGenerateLessonsFailure(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Broken", Rule: model.RecurrenceRule{
		Weekday:   time.Tuesday,
		StartTime: "18:00",
	}})

	code, env := s.do(t, http.MethodPost, "/api/v1/lessons/generate", 9, model.RoleAdmin, nil)
	if code != http.StatusUnprocessableEntity || errCode(env) != "GENERATION_FAILED" {
		t.Fatalf("got %d %s, want 422 GENERATION_FAILED", code, errCode(env))
	}
	if n := s.store.LessonCount(); n != 0 {
		t.Errorf("lessons after failure: got %d, want 0", n)
	}
}

func TestListLessonsValidatesMonth(t *testing.T) {
	s := newServer(t)
	code, env := s.do(t, http.MethodGet, "/api/v1/lessons?month=2024-13", 1, model.RoleNormal, nil)
	if code != http.StatusBadRequest || errCode(env) != "VALIDATION_ERROR" {
		t.Fatalf("got %d %s, want 400 VALIDATION_ERROR", code, errCode(env))
	}
	if _, ok := env.Error.Fields["month"]; !ok {
		t.Errorf("fields: got %v, want a month entry", env.Error.Fields)
	}
}

func TestDeleteLessonAsAdmin(t *testing.T) {
	s := newServer(t)
	s.store.PutClass(model.LessonClass{ID: 1, Name: "Yoga"})
	id := s.store.AddLesson(1, now.Add(time.Hour), now.Add(2*time.Hour))
	path := "/api/v1/lessons/" + itoa(id)

	if code, env := s.do(t, http.MethodPost, path+"/join", 1, model.RoleNormal, nil); code != http.StatusCreated {
		t.Fatalf("join: got %d %s, want 201", code, errCode(env))
	}
	if code, env := s.do(t, http.MethodDelete, path, 9, model.RoleAdmin, nil); code != http.StatusOK {
		t.Fatalf("delete: got %d %s, want 200", code, errCode(env))
	}
	if n := s.store.EnrollmentCount(); n != 0 {
		t.Errorf("enrollments after delete: got %d, want 0", n)
	}

	code, env := s.do(t, http.MethodDelete, path, 9, model.RoleAdmin, nil)
	if code != http.StatusNotFound || errCode(env) != "LESSON_NOT_FOUND" {
		t.Fatalf("second delete: got %d %s, want 404 LESSON_NOT_FOUND", code, errCode(env))
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
