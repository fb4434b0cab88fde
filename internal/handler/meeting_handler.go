package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adiwidodo/classadmin-api/internal/models"
	"github.com/adiwidodo/classadmin-api/internal/service"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
	"github.com/adiwidodo/classadmin-api/pkg/response"
)

// MeetingHandler manages staff meeting endpoints.
type MeetingHandler struct {
	service *service.MeetingService
}

// NewMeetingHandler constructs handler.
func NewMeetingHandler(svc *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{service: svc}
}

// List godoc
// @Summary List meetings
// @Tags Meetings
// @Produce json
// @Param from query string false "Filter from date (YYYY-MM-DD)"
// @Param to query string false "Filter to date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /meetings [get]
func (h *MeetingHandler) List(c *gin.Context) {
	var filter models.MeetingFilter
	filter.FromDate = c.Query("from")
	filter.ToDate = c.Query("to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	meetings, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings, pagination)
}

// Get godoc
// @Summary Get meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Router /meetings/{id} [get]
func (h *MeetingHandler) Get(c *gin.Context) {
	meeting, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting, nil)
}

// Create godoc
// @Summary Create meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body service.CreateMeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Router /meetings [post]
func (h *MeetingHandler) Create(c *gin.Context) {
	var req service.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	meeting, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meeting)
}

// Update godoc
// @Summary Update meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body service.UpdateMeetingRequest true "Meeting payload"
// @Success 200 {object} response.Envelope
// @Router /meetings/{id} [put]
func (h *MeetingHandler) Update(c *gin.Context) {
	var req service.UpdateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	meeting, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting, nil)
}

// Delete godoc
// @Summary Delete meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 204
// @Router /meetings/{id} [delete]
func (h *MeetingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
