package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kilo-studio/kilo-backend/internal/middleware"
	"github.com/kilo-studio/kilo-backend/internal/response"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

// MemberHandler serves the authenticated member's own views.
type MemberHandler struct {
	enrollment *service.EnrollmentService
	quota      *service.QuotaService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(enrollment *service.EnrollmentService, quota *service.QuotaService) *MemberHandler {
	return &MemberHandler{enrollment: enrollment, quota: quota}
}

// MyLessons godoc
// GET /api/v1/me/lessons?month=YYYY-MM
func (h *MemberHandler) MyLessons(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	month, ok := bindMonth(c, h.quota)
	if !ok {
		return
	}

	lessons, err := h.enrollment.MemberLessons(c.Request.Context(), caller, caller.MemberID, month)
	if err != nil {
		failFor(c, opOther, err)
		return
	}

	response.OK(c, gin.H{"month": month.String(), "lessons": lessons})
}

// MyQuota godoc
// GET /api/v1/me/quota
func (h *MemberHandler) MyQuota(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	summary, err := h.quota.Summary(c.Request.Context(), caller.MemberID)
	if err != nil {
		failFor(c, opOther, err)
		return
	}

	response.OK(c, gin.H{"quota": summary})
}
