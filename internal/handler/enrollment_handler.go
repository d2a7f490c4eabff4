package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// EnrollmentHandler handles enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a student into an offering explicitly
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Remove an enrollment with no attendance attached
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.enrollments.Unenroll(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary List an offering's roster ordered by roll number
// @Tags Enrollments
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/roster [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	roster, err := h.enrollments.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
