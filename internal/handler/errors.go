package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/response"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

// operation distinguishes join from leave where one service error maps to
// two client codes.
type operation int

const (
	opJoin operation = iota
	opLeave
	opOther
)

// failFor writes the envelope for a service error. Unknown errors are logged
// and reported as 500.
func failFor(c *gin.Context, op operation, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrAlreadyJoined)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNotJoined)
	case errors.Is(err, service.ErrQuotaExceeded):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoCount)
	case errors.Is(err, service.ErrPastDeadline):
		if op == opLeave {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrCantLeave)
			return
		}
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrCantJoin)
	case errors.Is(err, service.ErrLessonFull):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrLessonFull)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrMemberNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrMemberNotFound)
	case errors.Is(err, service.ErrLessonNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrLessonNotFound)
	case errors.Is(err, service.ErrAlreadyGenerated):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyGenerated)
	case errors.Is(err, service.ErrGenerationFailed):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrGenerationFailed)
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
