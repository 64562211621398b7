package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/service"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/response"
)

// PaymentHandler wires the payment service to HTTP routes.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// ListObligations godoc
// @Summary List obligations
// @Tags Payments
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param patient_id query string false "Filter by patient"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/obligations [get]
func (h *PaymentHandler) ListObligations(c *gin.Context) {
	obligations, err := h.payments.ListObligations(c.Request.Context(), branchIDFromContext(c), strings.TrimSpace(c.Query("patient_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, obligations, nil)
}

// CreateObligation godoc
// @Summary Create obligation
// @Tags Payments
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body service.CreateObligationRequest true "Obligation payload"
// @Success 201 {object} response.Envelope
// @Router /branches/{branchId}/obligations [post]
func (h *PaymentHandler) CreateObligation(c *gin.Context) {
	var req service.CreateObligationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid obligation payload"))
		return
	}
	obligation, err := h.payments.CreateObligation(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, obligation)
}

// PayObligation godoc
// @Summary Settle obligation
// @Tags Payments
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Obligation ID"
// @Param payload body service.PayObligationRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/obligations/{id}/pay [post]
func (h *PaymentHandler) PayObligation(c *gin.Context) {
	var req service.PayObligationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	obligation, err := h.payments.PayObligation(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, obligation, nil)
}

// ListDeposits godoc
// @Summary List a patient's deposits
// @Tags Payments
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/patients/{id}/deposits [get]
func (h *PaymentHandler) ListDeposits(c *gin.Context) {
	deposits, err := h.payments.ListDeposits(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deposits, nil)
}

// CreateDeposit godoc
// @Summary Record deposit
// @Tags Payments
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body service.CreateDepositRequest true "Deposit payload"
// @Success 201 {object} response.Envelope
// @Router /branches/{branchId}/deposits [post]
func (h *PaymentHandler) CreateDeposit(c *gin.Context) {
	var req service.CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deposit payload"))
		return
	}
	deposit, err := h.payments.CreateDeposit(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, deposit)
}
