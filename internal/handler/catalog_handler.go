package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// CatalogHandler handles cohort, section and subject endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateCohort godoc
// @Summary Create a cohort
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateCohortRequest true "Cohort payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts [post]
func (h *CatalogHandler) CreateCohort(c *gin.Context) {
	var req service.CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cohort, err := h.catalog.CreateCohort(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cohort)
}

// ListCohorts godoc
// @Summary List cohorts
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cohorts [get]
func (h *CatalogHandler) ListCohorts(c *gin.Context) {
	cohorts, err := h.catalog.ListCohorts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, nil)
}

// DeleteCohort godoc
// @Summary Delete a cohort with no dependents
// @Tags Catalog
// @Param id path string true "Cohort ID"
// @Success 204
// @Router /cohorts/{id} [delete]
func (h *CatalogHandler) DeleteCohort(c *gin.Context) {
	if err := h.catalog.DeleteCohort(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateSection godoc
// @Summary Create a section
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *CatalogHandler) CreateSection(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.catalog.CreateSection(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// ListSections godoc
// @Summary List sections
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *CatalogHandler) ListSections(c *gin.Context) {
	sections, err := h.catalog.ListSections(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// DeleteSection godoc
// @Summary Delete a section with no dependents
// @Tags Catalog
// @Param id path string true "Section ID"
// @Success 204
// @Router /sections/{id} [delete]
func (h *CatalogHandler) DeleteSection(c *gin.Context) {
	if err := h.catalog.DeleteSection(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateSubject godoc
// @Summary Create a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.catalog.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.catalog.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// DeleteSubject godoc
// @Summary Delete a subject with no dependents
// @Tags Catalog
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *CatalogHandler) DeleteSubject(c *gin.Context) {
	if err := h.catalog.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
