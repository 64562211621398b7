package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/service"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/response"
)

// OfficeHandler wires the office service to HTTP routes.
type OfficeHandler struct {
	offices *service.OfficeService
}

// NewOfficeHandler constructs a new OfficeHandler.
func NewOfficeHandler(offices *service.OfficeService) *OfficeHandler {
	return &OfficeHandler{offices: offices}
}

// List godoc
// @Summary List offices
// @Tags Offices
// @Produce json
// @Param branchId path string true "Branch ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/offices [get]
func (h *OfficeHandler) List(c *gin.Context) {
	offices, err := h.offices.List(c.Request.Context(), branchIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offices, nil)
}

// Get godoc
// @Summary Get office detail
// @Tags Offices
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Office ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/offices/{id} [get]
func (h *OfficeHandler) Get(c *gin.Context) {
	office, err := h.offices.Get(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office, nil)
}

// Create godoc
// @Summary Create office
// @Tags Offices
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body service.OfficeRequest true "Office payload"
// @Success 201 {object} response.Envelope
// @Router /branches/{branchId}/offices [post]
func (h *OfficeHandler) Create(c *gin.Context) {
	var req service.OfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid office payload"))
		return
	}
	office, err := h.offices.Create(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, office)
}

// Update godoc
// @Summary Rename office
// @Tags Offices
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Office ID"
// @Param payload body service.OfficeRequest true "Office payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/offices/{id} [put]
func (h *OfficeHandler) Update(c *gin.Context) {
	var req service.OfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid office payload"))
		return
	}
	office, err := h.offices.Update(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office, nil)
}

// Delete godoc
// @Summary Delete office
// @Tags Offices
// @Param branchId path string true "Branch ID"
// @Param id path string true "Office ID"
// @Success 204
// @Router /branches/{branchId}/offices/{id} [delete]
func (h *OfficeHandler) Delete(c *gin.Context) {
	if err := h.offices.Delete(c.Request.Context(), branchIDFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
