package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// TenantHandler handles tenant provisioning and settings endpoints.
type TenantHandler struct {
	tenants *service.TenantService
}

// NewTenantHandler constructs a tenant handler.
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Signup godoc
// @Summary Provision a new institution and its admin account
// @Tags Tenants
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Router /tenants/signup [post]
func (h *TenantHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.tenants.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Current godoc
// @Summary Return the active tenant's profile
// @Tags Tenants
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tenants/me [get]
func (h *TenantHandler) Current(c *gin.Context) {
	tenant, err := h.tenants.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

// UpdateSettings godoc
// @Summary Update tenant settings
// @Tags Tenants
// @Accept json
// @Produce json
// @Param payload body service.UpdateTenantSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /tenants/me/settings [put]
func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	var req service.UpdateTenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenant, err := h.tenants.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}
