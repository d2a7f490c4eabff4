package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// TeacherHandler handles the teacher dashboard endpoints.
type TeacherHandler struct {
	timeLock *service.TimeLockService
}

// NewTeacherHandler constructs a teacher handler.
func NewTeacherHandler(timeLock *service.TimeLockService) *TeacherHandler {
	return &TeacherHandler{timeLock: timeLock}
}

// SessionStatus godoc
// @Summary Report the teacher's current attendance window state
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers/me/session [get]
func (h *TeacherHandler) SessionStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.timeLock.TeacherStatus(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
