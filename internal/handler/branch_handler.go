package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/service"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/response"
)

// BranchHandler wires the branch service to HTTP routes.
type BranchHandler struct {
	branches *service.BranchService
}

// NewBranchHandler constructs a new BranchHandler.
func NewBranchHandler(branches *service.BranchService) *BranchHandler {
	return &BranchHandler{branches: branches}
}

// List godoc
// @Summary List branches
// @Tags Branches
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /branches [get]
func (h *BranchHandler) List(c *gin.Context) {
	branches, err := h.branches.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branches, nil)
}

// Get godoc
// @Summary Get branch detail
// @Tags Branches
// @Produce json
// @Param branchId path string true "Branch ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId} [get]
func (h *BranchHandler) Get(c *gin.Context) {
	branch, err := h.branches.Get(c.Request.Context(), c.Param("branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branch, nil)
}

// Create godoc
// @Summary Create branch
// @Tags Branches
// @Accept json
// @Produce json
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 201 {object} response.Envelope
// @Router /branches [post]
func (h *BranchHandler) Create(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid branch payload"))
		return
	}
	var ownerID string
	if claims := claimsFromContext(c); claims != nil {
		ownerID = claims.UserID
	}
	branch, err := h.branches.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, branch)
}

// Update godoc
// @Summary Rename branch
// @Tags Branches
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId} [put]
func (h *BranchHandler) Update(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid branch payload"))
		return
	}
	branch, err := h.branches.Update(c.Request.Context(), c.Param("branchId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branch, nil)
}
