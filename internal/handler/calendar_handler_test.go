package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwidodo/classadmin-api/internal/models"
	"github.com/adiwidodo/classadmin-api/internal/service"
	"github.com/adiwidodo/classadmin-api/pkg/response"
)

type scheduleListerStub struct{ schedules []models.Schedule }

func (s scheduleListerStub) ListAll(ctx context.Context, classID string) ([]models.Schedule, error) {
	if classID == "" {
		return s.schedules, nil
	}
	var out []models.Schedule
	for _, sched := range s.schedules {
		if sched.ClassID == classID {
			out = append(out, sched)
		}
	}
	return out, nil
}

func (s scheduleListerStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	for _, sched := range s.schedules {
		if sched.ID == id {
			copied := sched
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s scheduleListerStub) UpdateGuarded(ctx context.Context, schedule *models.Schedule, guard func([]models.Schedule) error) error {
	return guard(nil)
}

type exceptionRangeStub struct{}

func (exceptionRangeStub) ListByDateRange(ctx context.Context, from, to string) ([]models.ScheduleException, error) {
	return nil, nil
}

func (exceptionRangeStub) FindByScheduleAndDate(ctx context.Context, scheduleID, date string) (*models.ScheduleException, error) {
	return nil, sql.ErrNoRows
}

func (exceptionRangeStub) Upsert(ctx context.Context, exc *models.ScheduleException) error {
	return nil
}

type emptyMeetingsStub struct{}

func (emptyMeetingsStub) ListByDateRange(ctx context.Context, from, to string) ([]models.Meeting, error) {
	return nil, nil
}

type emptyTestsStub struct{}

func (emptyTestsStub) ListByDateRange(ctx context.Context, from, to string) ([]models.Test, error) {
	return nil, nil
}

type singleClassStub struct{}

func (singleClassStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if id == "class-1" {
		return &models.Class{ID: "class-1", Name: "Mathematics"}, nil
	}
	return nil, sql.ErrNoRows
}

func newCalendarHandlerFixture() *CalendarHandler {
	schedules := scheduleListerStub{schedules: []models.Schedule{
		{ID: "sched-1", ClassID: "class-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00"},
	}}
	calendarSvc := service.NewCalendarService(schedules, exceptionRangeStub{}, emptyMeetingsStub{}, emptyTestsStub{}, singleClassStub{}, "08:00", 90, nil)
	return NewCalendarHandler(calendarSvc, nil)
}

func TestCalendarHandlerMaterialize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCalendarHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/calendar?from=2025-03-03&to=2025-03-09", nil)
	c.Request = req

	handler.Materialize(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	events, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, events, 1)
	event := events[0].(map[string]interface{})
	assert.Equal(t, "class:sched-1:2025-03-03", event["id"])
	assert.Equal(t, "Mathematics", event["title"])
}

func TestCalendarHandlerMaterializeRejectsBadRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCalendarHandlerFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/calendar?from=2025-03-09&to=2025-03-03", nil)
	c.Request = req

	handler.Materialize(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarHandlerMoveEventRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	schedules := scheduleListerStub{}
	rescheduleSvc := service.NewRescheduleService(schedules, exceptionRangeStub{}, nil, nil, singleClassStub{}, "08:00", 90, nil, nil)
	handler := NewCalendarHandler(nil, rescheduleSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/calendar/events/class:sched-1:2025-03-03/move", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "class:sched-1:2025-03-03"}}

	handler.MoveEvent(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
