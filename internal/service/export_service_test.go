package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

type exportScheduleReaderStub struct{ schedules []models.Schedule }

func (s exportScheduleReaderStub) ListByClass(ctx context.Context, classID string) ([]models.Schedule, error) {
	return s.schedules, nil
}

func TestExportServiceRenderTimetableCSV(t *testing.T) {
	svc := NewExportService(exportScheduleReaderStub{schedules: []models.Schedule{
		{ID: "s1", ClassID: "class-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:30",
			Exceptions: []models.ScheduleException{{ID: "e1"}}},
	}}, mathClass(), nil)

	payload, contentType, err := svc.RenderTimetable(context.Background(), "class-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Day,Start,End,Duration (min),Exceptions"))
	assert.Contains(t, body, "Monday,10:00,11:30,90,1")
}

func TestExportServiceRenderTimetablePDF(t *testing.T) {
	svc := NewExportService(exportScheduleReaderStub{}, mathClass(), nil)

	payload, contentType, err := svc.RenderTimetable(context.Background(), "class-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceRenderTimetableUnknownClass(t *testing.T) {
	svc := NewExportService(exportScheduleReaderStub{}, mathClass(), nil)

	_, _, err := svc.RenderTimetable(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRenderTimetableBadFormat(t *testing.T) {
	svc := NewExportService(exportScheduleReaderStub{}, mathClass(), nil)

	_, _, err := svc.RenderTimetable(context.Background(), "class-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
