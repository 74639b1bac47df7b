package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kilo-studio/kilo-backend/internal/middleware"
	"github.com/kilo-studio/kilo-backend/internal/response"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
	"github.com/kilo-studio/kilo-backend/internal/service"
	"github.com/kilo-studio/kilo-backend/internal/validator"
)

// LessonHandler exposes lesson enrollment and schedule generation.
type LessonHandler struct {
	lessons    *service.LessonService
	enrollment *service.EnrollmentService
	schedule   *service.ScheduleService
	quota      *service.QuotaService
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(
	lessons *service.LessonService,
	enrollment *service.EnrollmentService,
	schedule *service.ScheduleService,
	quota *service.QuotaService,
) *LessonHandler {
	return &LessonHandler{
		lessons:    lessons,
		enrollment: enrollment,
		schedule:   schedule,
		quota:      quota,
	}
}

// MemberRequest optionally names the member to act for. Omitted means the caller.
type MemberRequest struct {
	MemberID *int `json:"member_id" binding:"omitempty,min=1"`
}

// MonthQuery selects a calendar month. Omitted means the current month.
type MonthQuery struct {
	Month string `form:"month" binding:"omitempty,yearmonth"`
}

// ListLessons godoc
// GET /api/v1/lessons?month=YYYY-MM
func (h *LessonHandler) ListLessons(c *gin.Context) {
	month, ok := h.bindMonth(c)
	if !ok {
		return
	}

	lessons, err := h.lessons.ListByMonth(c.Request.Context(), month)
	if err != nil {
		failFor(c, opOther, err)
		return
	}

	response.OK(c, gin.H{"month": month.String(), "lessons": lessons})
}

// JoinLesson godoc
// POST /api/v1/lessons/:id/join
// Enrolls the caller, or the member named in the body when the caller is an admin.
func (h *LessonHandler) JoinLesson(c *gin.Context) {
	caller, lessonID, memberID, ok := h.bindEnrollment(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollment.Join(c.Request.Context(), caller, memberID, lessonID)
	if err != nil {
		failFor(c, opJoin, err)
		return
	}

	lesson, err := h.lessons.Get(c.Request.Context(), lessonID)
	if err != nil {
		failFor(c, opOther, err)
		return
	}

	response.Created(c, gin.H{"enrollment": enrollment, "lesson": lesson})
}

// LeaveLesson godoc
// DELETE /api/v1/lessons/:id/leave
func (h *LessonHandler) LeaveLesson(c *gin.Context) {
	caller, lessonID, memberID, ok := h.bindEnrollment(c)
	if !ok {
		return
	}

	if err := h.enrollment.Leave(c.Request.Context(), caller, memberID, lessonID); err != nil {
		failFor(c, opLeave, err)
		return
	}

	response.OK(c, gin.H{"lesson_id": lessonID, "member_id": memberID})
}

// GenerateLessons godoc
// POST /api/v1/lessons/generate
// Creates next month's lessons. 201 on success, 409 when the month already
// has lessons, 422 when a lesson class cannot be expanded.
func (h *LessonHandler) GenerateLessons(c *gin.Context) {
	result, err := h.schedule.GenerateNextMonth(c.Request.Context())
	if err != nil {
		failFor(c, opOther, err)
		return
	}

	response.Created(c, result)
}

// DeleteLesson godoc
// DELETE /api/v1/lessons/:id
// Removes a lesson and releases its enrollments.
func (h *LessonHandler) DeleteLesson(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.lessons.Delete(c.Request.Context(), id); err != nil {
		failFor(c, opOther, err)
		return
	}

	response.OK(c, gin.H{"lesson_id": id})
}

// bindEnrollment reads the lesson ID path param and the optional member ID.
func (h *LessonHandler) bindEnrollment(c *gin.Context) (service.Caller, int, int, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Caller{}, 0, 0, false
	}

	lessonID, err := strconv.Atoi(c.Param("id"))
	if err != nil || lessonID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return service.Caller{}, 0, 0, false
	}

	var req MemberRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return service.Caller{}, 0, 0, false
	}

	memberID := caller.MemberID
	if req.MemberID != nil {
		memberID = *req.MemberID
	}
	return caller, lessonID, memberID, true
}

// bindMonth resolves the month query param in the service's time zone.
func (h *LessonHandler) bindMonth(c *gin.Context) (schedule.Month, bool) {
	return bindMonth(c, h.quota)
}

func bindMonth(c *gin.Context, quota *service.QuotaService) (schedule.Month, bool) {
	var q MonthQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return schedule.Month{}, false
	}

	current := quota.CurrentMonth()
	if q.Month == "" {
		return current, true
	}

	month, err := schedule.ParseMonth(q.Month, current.Loc)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"month": err.Error()})
		return schedule.Month{}, false
	}
	return month, true
}
