package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwidodo/classadmin-api/internal/models"
	"github.com/adiwidodo/classadmin-api/internal/service"
)

type exceptionWriterStub struct {
	existing map[string]*models.ScheduleException // keyed scheduleID + "|" + date
	created  *models.ScheduleException
}

func (s *exceptionWriterStub) FindByID(ctx context.Context, id string) (*models.ScheduleException, error) {
	return nil, sql.ErrNoRows
}

func (s *exceptionWriterStub) FindByScheduleAndDate(ctx context.Context, scheduleID, date string) (*models.ScheduleException, error) {
	if exc, ok := s.existing[scheduleID+"|"+date]; ok {
		copied := *exc
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exceptionWriterStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleException, error) {
	return nil, nil
}

func (s *exceptionWriterStub) ListByDateRange(ctx context.Context, from, to string) ([]models.ScheduleException, error) {
	return nil, nil
}

func (s *exceptionWriterStub) Create(ctx context.Context, exc *models.ScheduleException) error {
	exc.ID = "exc-new"
	s.created = exc
	return nil
}

func (s *exceptionWriterStub) Upsert(ctx context.Context, exc *models.ScheduleException) error {
	return nil
}

func (s *exceptionWriterStub) Update(ctx context.Context, exc *models.ScheduleException) error {
	return sql.ErrNoRows
}

func (s *exceptionWriterStub) Delete(ctx context.Context, id string) error {
	return sql.ErrNoRows
}

type scheduleFinderStub struct{ known map[string]bool }

func (s scheduleFinderStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s.known[id] {
		return &models.Schedule{ID: id, ClassID: "class-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00"}, nil
	}
	return nil, sql.ErrNoRows
}

func newExceptionHandlerFixture(repo *exceptionWriterStub) *ExceptionHandler {
	schedules := scheduleFinderStub{known: map[string]bool{"sched-1": true}}
	return NewExceptionHandler(service.NewExceptionService(repo, schedules, nil, nil))
}

func scheduleIDParam(id string) gin.Params {
	return gin.Params{{Key: "id", Value: id}}
}

func TestExceptionHandlerCreateCreated(t *testing.T) {
	repo := &exceptionWriterStub{}
	h := newExceptionHandlerFixture(repo)

	w := postJSON(t, h.Create, "/schedules/sched-1/exceptions",
		`{"date":"2025-03-03","start_time":"13:00","end_time":"14:00"}`, scheduleIDParam("sched-1"))

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "sched-1", repo.created.ScheduleID)
}

func TestExceptionHandlerCreateDuplicateDate(t *testing.T) {
	repo := &exceptionWriterStub{existing: map[string]*models.ScheduleException{
		"sched-1|2025-03-03": {ID: "exc-1", ScheduleID: "sched-1", Date: "2025-03-03"},
	}}
	h := newExceptionHandlerFixture(repo)

	w := postJSON(t, h.Create, "/schedules/sched-1/exceptions",
		`{"date":"2025-03-03","start_time":"13:00","end_time":"14:00"}`, scheduleIDParam("sched-1"))

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Nil(t, repo.created)
}

func TestExceptionHandlerCreateUnknownSchedule(t *testing.T) {
	h := newExceptionHandlerFixture(&exceptionWriterStub{})

	w := postJSON(t, h.Create, "/schedules/missing/exceptions",
		`{"date":"2025-03-03","start_time":"13:00","end_time":"14:00"}`, scheduleIDParam("missing"))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExceptionHandlerCreateBadTimes(t *testing.T) {
	h := newExceptionHandlerFixture(&exceptionWriterStub{})

	// Override times must be ordered; only cancellations may omit them.
	w := postJSON(t, h.Create, "/schedules/sched-1/exceptions",
		`{"date":"2025-03-03","start_time":"14:00","end_time":"13:00"}`, scheduleIDParam("sched-1"))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExceptionHandlerDeleteNotFound(t *testing.T) {
	h := newExceptionHandlerFixture(&exceptionWriterStub{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/exceptions/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Delete(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
