package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/halodent/clinic-api/internal/dto"
	"github.com/halodent/clinic-api/internal/models"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/export"
	"github.com/halodent/clinic-api/pkg/response"
)

type bookingService interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error)
	Get(ctx context.Context, branchID, id string) (*models.Event, error)
	Create(ctx context.Context, branchID string, req dto.CreateEventRequest) ([]models.Event, error)
	Update(ctx context.Context, branchID, id string, req dto.UpdateEventRequest) (*models.Event, error)
	Delete(ctx context.Context, branchID, id string) error
	DaySheet(ctx context.Context, branchID, doctorID string, date time.Time, clinicName string) (*export.DaySheet, error)
}

type slotService interface {
	TimeSlots(ctx context.Context, branchID string, req dto.TimeSlotRequest) ([]models.Slot, error)
}

type availabilityService interface {
	CheckRange(ctx context.Context, branchID string, req dto.AvailabilityRequest) ([]models.AvailabilityResult, error)
	ListAvailableAssistants(ctx context.Context, branchID string, date time.Time, startMinute, endMinute int) ([]string, error)
}

// EventHandler wires the scheduling services to HTTP routes.
type EventHandler struct {
	events       bookingService
	slots        slotService
	availability availabilityService
	exporter     *export.DaySheetExporter
	clinicName   string
}

// NewEventHandler constructs a new EventHandler.
func NewEventHandler(events bookingService, slots slotService, availability availabilityService, exporter *export.DaySheetExporter, clinicName string) *EventHandler {
	return &EventHandler{
		events:       events,
		slots:        slots,
		availability: availability,
		exporter:     exporter,
		clinicName:   clinicName,
	}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param doctor_id query string false "Filter by doctor"
// @Param office_id query string false "Filter by office"
// @Param patient_id query string false "Filter by patient"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter := models.EventFilter{
		BranchID:  branchIDFromContext(c),
		DoctorID:  strings.TrimSpace(c.Query("doctor_id")),
		OfficeID:  strings.TrimSpace(c.Query("office_id")),
		PatientID: strings.TrimSpace(c.Query("patient_id")),
	}
	if raw := c.Query("from"); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &date
	}
	if raw := c.Query("to"); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
			return
		}
		filter.DateTo = &date
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	events, pagination, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Get godoc
// @Summary Get event detail
// @Tags Events
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), branchIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Create godoc
// @Summary Book an appointment
// @Description Books a single or repeating appointment after validating working hours and conflicts.
// @Tags Events
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /branches/{branchId}/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	events, err := h.events.Create(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, events)
}

// Update godoc
// @Summary Update an appointment
// @Tags Events
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param id path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /branches/{branchId}/events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), branchIDFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Cancel an appointment
// @Tags Events
// @Param branchId path string true "Branch ID"
// @Param id path string true "Event ID"
// @Success 204
// @Router /branches/{branchId}/events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), branchIDFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TimeSlots godoc
// @Summary Generate free time slots
// @Description Returns the fixed-length bookable slots of a doctor over a date range.
// @Tags Events
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body dto.TimeSlotRequest true "Slot request"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/events/time-slots [post]
func (h *EventHandler) TimeSlots(c *gin.Context) {
	var req dto.TimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot request"))
		return
	}
	slots, err := h.slots.TimeSlots(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CheckAvailability godoc
// @Summary Check staff availability
// @Description Checks whether staff members are bookable for a time range across a date range, reporting every conflict.
// @Tags Events
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param payload body dto.AvailabilityRequest true "Availability request"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/events/availability [post]
func (h *EventHandler) CheckAvailability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability request"))
		return
	}
	results, err := h.availability.CheckRange(c.Request.Context(), branchIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// AvailableAssistants godoc
// @Summary List available assistants
// @Tags Events
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start_time query string true "Start time (HH:MM)"
// @Param end_time query string true "End time (HH:MM)"
// @Success 200 {object} response.Envelope
// @Router /branches/{branchId}/events/available-assistants [get]
func (h *EventHandler) AvailableAssistants(c *gin.Context) {
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	start, parseErr := models.ParseMinuteOfDay(c.Query("start_time"))
	if parseErr != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM"))
		return
	}
	end, parseErr := models.ParseMinuteOfDay(c.Query("end_time"))
	if parseErr != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM"))
		return
	}
	if end <= start {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidRange, "end_time must be after start_time"))
		return
	}

	assistants, err := h.availability.ListAvailableAssistants(c.Request.Context(), branchIDFromContext(c), date, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assistants, nil)
}

// DaySheet godoc
// @Summary Export a doctor's day sheet
// @Description Renders the doctor's appointments for one date as CSV or PDF.
// @Tags Events
// @Produce application/pdf
// @Param branchId path string true "Branch ID"
// @Param doctor_id query string true "Doctor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /branches/{branchId}/events/day-sheet [get]
func (h *EventHandler) DaySheet(c *gin.Context) {
	doctorID := strings.TrimSpace(c.Query("doctor_id"))
	if doctorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing doctor_id"))
		return
	}
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}

	sheet, err := h.events.DaySheet(c.Request.Context(), branchIDFromContext(c), doctorID, date, h.clinicName)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "pdf"))
	filename := fmt.Sprintf("day-sheet-%s.%s", date.Format(models.DateLayout), format)

	switch format {
	case "csv":
		data, err := h.exporter.RenderCSV(*sheet)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render day sheet"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/csv", data)
	case "pdf":
		data, err := h.exporter.RenderPDF(*sheet)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render day sheet"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
