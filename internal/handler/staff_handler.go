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

// StaffHandler wires staff, schedule and absence services to HTTP routes.
type StaffHandler struct {
	staff     *service.StaffService
	schedules *service.ScheduleService
	absences  *service.AbsenceService
}

// NewStaffHandler constructs a new StaffHandler.
func NewStaffHandler(staff *service.StaffService, schedules *service.ScheduleService, absences *service.AbsenceService) *StaffHandler {
	return &StaffHandler{staff: staff, schedules: schedules, absences: absences}
}

// List godoc
// @Summary List staff members
// @Tags Staff
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param role query string false "Filter by role"
// @Param active query bool false "Filter by active status"
// @Param search query string false "Search by name/email"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	filter := models.StaffFilter{
		BranchID:  branchIDFromContext(c),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if role := c.Query("role"); role != "" {
		typed := models.StaffRole(strings.ToLower(role))
		filter.Role = &typed
	}
	if active := c.Query("active"); active != "" {
		switch strings.ToLower(active) {
		case "true":
			val := true
			filter.Active = &val
		case "false":
			val := false
			filter.Active = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	staff, pagination, err := h.staff.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, pagination)
}

// Get godoc
// @Summary Get staff member detail
// @Tags Staff
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	staff, err := h.staff.Get(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Create godoc
// @Summary Create staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body service.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Router /branches/{branchId}/staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid staff payload"))
		return
	}
	staff, err := h.staff.Create(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staff)
}

// Update godoc
// @Summary Update staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param payload body service.UpdateStaffRequest true "Staff payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	var req service.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid staff payload"))
		return
	}
	staff, err := h.staff.Update(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Delete godoc
// @Summary Deactivate staff member
// @Tags Staff
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Success 204
// @Router /branches/{branchId}/staff/{id} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.staff.Deactivate(c.Request.Context(), branchIDFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListWeekly godoc
// @Summary List weekly working hours
// @Tags Schedules
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id}/schedule [get]
func (h *StaffHandler) ListWeekly(c *gin.Context) {
	entries, err := h.schedules.ListWeekly(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// SetWeekly godoc
// @Summary Set weekly working hours for one weekday
// @Tags Schedules
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param payload body service.WeeklyScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id}/schedule [put]
func (h *StaffHandler) SetWeekly(c *gin.Context) {
	var req service.WeeklyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	entry, err := h.schedules.SetWeekly(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// DeleteWeekly godoc
// @Summary Remove weekly working hours for one weekday
// @Tags Schedules
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param weekday path int true "Weekday (0=Monday)"
// @Success 204
// @Router /branches/{branchId}/staff/{id}/schedule/{weekday} [delete]
func (h *StaffHandler) DeleteWeekly(c *gin.Context) {
	weekday, err := strconv.Atoi(c.Param("weekday"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid weekday"))
		return
	}
	if err := h.schedules.DeleteWeekly(c.Request.Context(), branchIDFromContext(c), c.Param("id"), weekday); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListOverrides godoc
// @Summary List schedule overrides
// @Tags Schedules
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id}/overrides [get]
func (h *StaffHandler) ListOverrides(c *gin.Context) {
	entries, err := h.schedules.ListOverrides(c.Request.Context(), branchIDFromContext(c), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// SetOverride godoc
// @Summary Set a schedule override for one date
// @Tags Schedules
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param payload body service.ScheduleOverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id}/overrides [put]
func (h *StaffHandler) SetOverride(c *gin.Context) {
	var req service.ScheduleOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	entry, err := h.schedules.SetOverride(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// DeleteOverride godoc
// @Summary Remove a schedule override
// @Tags Schedules
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /branches/{branchId}/staff/{id}/overrides/{date} [delete]
func (h *StaffHandler) DeleteOverride(c *gin.Context) {
	if err := h.schedules.DeleteOverride(c.Request.Context(), branchIDFromContext(c), c.Param("id"), c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAbsences godoc
// @Summary List absences of a staff member
// @Tags Schedules
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id}/absences [get]
func (h *StaffHandler) ListAbsences(c *gin.Context) {
	absences, err := h.absences.List(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absences, nil)
}

// CreateAbsence godoc
// @Summary Register an absence for a staff member
// @Tags Schedules
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param payload body service.AbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /branches/{branchId}/staff/{id}/absences [post]
func (h *StaffHandler) CreateAbsence(c *gin.Context) {
	var req service.AbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	absence, err := h.absences.Create(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}

// DeleteAbsence godoc
// @Summary Remove an absence
// @Tags Schedules
// @Param branchId path string true "Branch ID"
// @Param id path string true "Staff ID"
// @Param absenceId path string true "Absence ID"
// @Success 204
// @Router /branches/{branchId}/staff/{id}/absences/{absenceId} [delete]
func (h *StaffHandler) DeleteAbsence(c *gin.Context) {
	if err := h.absences.Delete(c.Request.Context(), branchIDFromContext(c), c.Param("id"), c.Param("absenceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
