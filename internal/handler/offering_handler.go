package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// OfferingHandler handles course offering endpoints.
type OfferingHandler struct {
	offerings *service.OfferingService
}

// NewOfferingHandler constructs an offering handler.
func NewOfferingHandler(offerings *service.OfferingService) *OfferingHandler {
	return &OfferingHandler{offerings: offerings}
}

// Create godoc
// @Summary Assign a teacher a subject for a cohort and section
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body service.CreateOfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Router /offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	var req service.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.offerings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// List godoc
// @Summary List offerings
// @Tags Offerings
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param subject_id query string false "Filter by subject"
// @Param cohort_id query string false "Filter by cohort"
// @Param section_id query string false "Filter by section"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	var filter models.OfferingFilter
	filter.TeacherID = c.Query("teacher_id")
	filter.SubjectID = c.Query("subject_id")
	filter.CohortID = c.Query("cohort_id")
	filter.SectionID = c.Query("section_id")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	offerings, pagination, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Get godoc
// @Summary Get offering by id
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	offering, err := h.offerings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Delete godoc
// @Summary Delete an offering and its enrollments
// @Tags Offerings
// @Param id path string true "Offering ID"
// @Success 204
// @Router /offerings/{id} [delete]
func (h *OfferingHandler) Delete(c *gin.Context) {
	if err := h.offerings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
