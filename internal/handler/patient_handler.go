package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/models"
	"github.com/halodent/clinic-api/internal/service"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/response"
)

// PatientHandler wires the patient service to HTTP routes.
type PatientHandler struct {
	patients *service.PatientService
}

// NewPatientHandler constructs a new PatientHandler.
func NewPatientHandler(patients *service.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

// List godoc
// @Summary List patients
// @Tags Patients
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param search query string false "Search by name/email/phone"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	filter := models.PatientFilter{
		BranchID:  branchIDFromContext(c),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	patients, pagination, err := h.patients.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Get godoc
// @Summary Get patient detail
// @Tags Patients
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/patients/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patients.Get(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Create godoc
// @Summary Register patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body service.CreatePatientRequest true "Patient payload"
// @Success 201 {object} response.Envelope
// @Router /branches/{branchId}/patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	var req service.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patient payload"))
		return
	}
	patient, err := h.patients.Create(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update godoc
// @Summary Update patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Patient ID"
// @Param payload body service.UpdatePatientRequest true "Patient payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/patients/{id} [put]
func (h *PatientHandler) Update(c *gin.Context) {
	var req service.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patient payload"))
		return
	}
	patient, err := h.patients.Update(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Delete godoc
// @Summary Delete patient
// @Tags Patients
// @Param branchId path string true "Branch ID"
// @Param id path string true "Patient ID"
// @Success 204
// @Router /branches/{branchId}/patients/{id} [delete]
func (h *PatientHandler) Delete(c *gin.Context) {
	if err := h.patients.Delete(c.Request.Context(), branchIDFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
