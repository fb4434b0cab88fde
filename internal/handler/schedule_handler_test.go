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

type scheduleWriterStub struct {
	schedules map[string]*models.Schedule
	siblings  []models.Schedule
	created   *models.Schedule
}

func (s *scheduleWriterStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if sched, ok := s.schedules[id]; ok {
		copied := *sched
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleWriterStub) ListByClass(ctx context.Context, classID string) ([]models.Schedule, error) {
	return nil, nil
}

func (s *scheduleWriterStub) ListAll(ctx context.Context, classID string) ([]models.Schedule, error) {
	return nil, nil
}

func (s *scheduleWriterStub) CreateGuarded(ctx context.Context, schedule *models.Schedule, guard func([]models.Schedule) error) error {
	if err := guard(s.siblings); err != nil {
		return err
	}
	schedule.ID = "sched-new"
	s.created = schedule
	return nil
}

func (s *scheduleWriterStub) UpdateGuarded(ctx context.Context, schedule *models.Schedule, guard func([]models.Schedule) error) error {
	if _, ok := s.schedules[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	return guard(s.siblings)
}

func (s *scheduleWriterStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

type classExistsStub struct{ exists bool }

func (s classExistsStub) Exists(ctx context.Context, id string) (bool, error) {
	return s.exists, nil
}

func newScheduleHandlerFixture(repo *scheduleWriterStub, classes classExistsStub) *ScheduleHandler {
	return NewScheduleHandler(service.NewScheduleService(repo, classes, nil, nil))
}

func postJSON(t *testing.T, h gin.HandlerFunc, target, body string, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	h(c)
	return w
}

func TestScheduleHandlerCreateCreated(t *testing.T) {
	repo := &scheduleWriterStub{}
	h := newScheduleHandlerFixture(repo, classExistsStub{exists: true})

	w := postJSON(t, h.Create, "/schedules",
		`{"class_id":"class-1","day_of_week":1,"start_time":"10:00","end_time":"11:30"}`, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "class-1", repo.created.ClassID)
}

func TestScheduleHandlerCreateConflictCarriesIDs(t *testing.T) {
	repo := &scheduleWriterStub{siblings: []models.Schedule{
		{ID: "sched-9", ClassID: "class-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00"},
	}}
	h := newScheduleHandlerFixture(repo, classExistsStub{exists: true})

	w := postJSON(t, h.Create, "/schedules",
		`{"class_id":"class-1","day_of_week":1,"start_time":"10:30","end_time":"11:30"}`, nil)

	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)

	// The body names the blocking schedules, not just the conflict code.
	details, ok := envelope.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"sched-9"}, details["conflicting_ids"])
	assert.Nil(t, repo.created)
}

func TestScheduleHandlerCreateBadTime(t *testing.T) {
	h := newScheduleHandlerFixture(&scheduleWriterStub{}, classExistsStub{exists: true})

	w := postJSON(t, h.Create, "/schedules",
		`{"class_id":"class-1","day_of_week":1,"start_time":"25:00","end_time":"26:00"}`, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerCreateUnknownClass(t *testing.T) {
	h := newScheduleHandlerFixture(&scheduleWriterStub{}, classExistsStub{exists: false})

	w := postJSON(t, h.Create, "/schedules",
		`{"class_id":"missing","day_of_week":1,"start_time":"10:00","end_time":"11:00"}`, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	h := newScheduleHandlerFixture(&scheduleWriterStub{}, classExistsStub{exists: true})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
