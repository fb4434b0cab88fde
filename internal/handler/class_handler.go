package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adiwidodo/classadmin-api/internal/models"
	"github.com/adiwidodo/classadmin-api/internal/service"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
	"github.com/adiwidodo/classadmin-api/pkg/response"
)

// ClassHandler manages class endpoints.
type ClassHandler struct {
	service *service.ClassService
	export  *service.ExportService
}

// NewClassHandler constructs handler.
func NewClassHandler(svc *service.ClassService, export *service.ExportService) *ClassHandler {
	return &ClassHandler{service: svc, export: export}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param search query string false "Filter by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	classes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req service.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportTimetable godoc
// @Summary Export a class's weekly timetable
// @Tags Classes
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /classes/{id}/timetable/export [get]
func (h *ClassHandler) ExportTimetable(c *gin.Context) {
	classID := c.Param("id")
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.export.RenderTimetable(c.Request.Context(), classID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("timetable-%s.%s", classID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
