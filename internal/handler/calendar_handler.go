package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adiwidodo/classadmin-api/internal/service"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
	"github.com/adiwidodo/classadmin-api/pkg/response"
)

// CalendarHandler serves materialized calendar views and event moves.
type CalendarHandler struct {
	calendar   *service.CalendarService
	reschedule *service.RescheduleService
}

// NewCalendarHandler constructs handler.
func NewCalendarHandler(calendar *service.CalendarService, reschedule *service.RescheduleService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, reschedule: reschedule}
}

// Materialize godoc
// @Summary Materialize calendar events for a date range
// @Tags Calendar
// @Produce json
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param classId query string false "Restrict to a single class"
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Materialize(c *gin.Context) {
	req := service.CalendarRequest{
		From:    c.Query("from"),
		To:      c.Query("to"),
		ClassID: c.Query("classId"),
	}
	events, err := h.calendar.Materialize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// MoveEvent godoc
// @Summary Move a calendar event to a new date and start time
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Calendar event ID"
// @Param payload body service.MoveEventRequest true "Move payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calendar/events/{id}/move [post]
func (h *CalendarHandler) MoveEvent(c *gin.Context) {
	var req service.MoveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.reschedule.MoveOccurrence(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}
