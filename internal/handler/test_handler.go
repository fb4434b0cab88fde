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

// TestHandler manages scheduled test endpoints.
type TestHandler struct {
	service *service.TestService
}

// NewTestHandler constructs handler.
func NewTestHandler(svc *service.TestService) *TestHandler {
	return &TestHandler{service: svc}
}

// List godoc
// @Summary List tests
// @Tags Tests
// @Produce json
// @Param classId query string false "Filter by class"
// @Param from query string false "Filter from date (YYYY-MM-DD)"
// @Param to query string false "Filter to date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tests [get]
func (h *TestHandler) List(c *gin.Context) {
	var filter models.TestFilter
	filter.ClassID = c.Query("classId")
	filter.FromDate = c.Query("from")
	filter.ToDate = c.Query("to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	tests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tests, pagination)
}

// Get godoc
// @Summary Get test
// @Tags Tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Router /tests/{id} [get]
func (h *TestHandler) Get(c *gin.Context) {
	test, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, test, nil)
}

// Create godoc
// @Summary Create test
// @Tags Tests
// @Accept json
// @Produce json
// @Param payload body service.CreateTestRequest true "Test payload"
// @Success 201 {object} response.Envelope
// @Router /tests [post]
func (h *TestHandler) Create(c *gin.Context) {
	var req service.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	test, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, test)
}

// Update godoc
// @Summary Update test
// @Tags Tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body service.UpdateTestRequest true "Test payload"
// @Success 200 {object} response.Envelope
// @Router /tests/{id} [put]
func (h *TestHandler) Update(c *gin.Context) {
	var req service.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	test, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, test, nil)
}

// Delete godoc
// @Summary Delete test
// @Tags Tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 204
// @Router /tests/{id} [delete]
func (h *TestHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
