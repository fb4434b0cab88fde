package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

type meetingStoreStub struct {
	meetings map[string]*models.Meeting
	updated  *models.Meeting
}

func (s *meetingStoreStub) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	if m, ok := s.meetings[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *meetingStoreStub) Update(ctx context.Context, meeting *models.Meeting) error {
	s.updated = meeting
	return nil
}

type testStoreStub struct {
	tests   map[string]*models.Test
	updated *models.Test
}

func (s *testStoreStub) FindByID(ctx context.Context, id string) (*models.Test, error) {
	if tt, ok := s.tests[id]; ok {
		copied := *tt
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *testStoreStub) Update(ctx context.Context, test *models.Test) error {
	s.updated = test
	return nil
}

type rescheduleFixture struct {
	schedules  *scheduleRepoStub
	exceptions *exceptionRepoStub
	meetings   *meetingStoreStub
	tests      *testStoreStub
	svc        *RescheduleService
}

func newRescheduleFixture() *rescheduleFixture {
	f := &rescheduleFixture{
		schedules: &scheduleRepoStub{
			schedules: map[string]*models.Schedule{
				"sched-1": {ID: "sched-1", ClassID: "class-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:30"},
			},
		},
		exceptions: &exceptionRepoStub{},
		meetings: &meetingStoreStub{
			meetings: map[string]*models.Meeting{
				"meet-1": {ID: "meet-1", Title: "Staff sync", Date: weekMonday, StartTime: "07:30", EndTime: "08:15"},
			},
		},
		tests: &testStoreStub{
			tests: map[string]*models.Test{
				"test-1": {ID: "test-1", ClassID: "class-1", Title: "Algebra quiz", TestDate: weekTuesday},
			},
		},
	}
	f.svc = NewRescheduleService(f.schedules, f.exceptions, f.meetings, f.tests, mathClass(), "08:00", 90, nil, nil)
	return f
}

func TestMoveClassOccurrenceRequiresMode(t *testing.T) {
	f := newRescheduleFixture()

	_, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "13:15",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMoveClassOccurrenceSingle(t *testing.T) {
	f := newRescheduleFixture()

	event, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "13:15",
		Mode:         MoveModeSingle,
	})
	require.NoError(t, err)

	// The occurrence keeps its 90-minute duration at the new start.
	stored := f.exceptions.byKey[excKey("sched-1", weekWednesday)]
	require.NotNil(t, stored)
	assert.Equal(t, "13:15", stored.StartTime)
	assert.Equal(t, "14:45", stored.EndTime)
	assert.False(t, stored.Cancelled)

	assert.Equal(t, weekWednesday, event.Date)
	assert.Equal(t, 90, event.DurationMinutes)
	assert.Equal(t, "moved from Monday", event.Tag)

	// The weekly pattern itself is untouched.
	assert.Nil(t, f.schedules.updated)
}

func TestMoveClassOccurrenceSingleSameWeekday(t *testing.T) {
	f := newRescheduleFixture()

	// 2025-03-10 is also a Monday, so the tag stays "rescheduled".
	event, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      "2025-03-10",
		NewStartTime: "10:00",
		Mode:         MoveModeSingle,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventTagRescheduled, event.Tag)
}

func TestMoveClassOccurrenceSingleIdempotent(t *testing.T) {
	f := newRescheduleFixture()

	req := MoveEventRequest{NewDate: weekWednesday, NewStartTime: "13:15", Mode: MoveModeSingle}
	_, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), req)
	require.NoError(t, err)
	_, err = f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), req)
	require.NoError(t, err)

	// The upsert path leaves exactly one exception per (schedule, date).
	count := 0
	for _, exc := range f.exceptions.byKey {
		if exc.ScheduleID == "sched-1" && exc.Date == weekWednesday {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMoveClassOccurrenceNoOp(t *testing.T) {
	f := newRescheduleFixture()

	event, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekMonday,
		NewStartTime: "10:00",
		Mode:         MoveModeSingle,
	})
	require.NoError(t, err)
	assert.Empty(t, f.exceptions.byKey)
	assert.Nil(t, f.schedules.updated)
	assert.Equal(t, weekMonday, event.Date)
	assert.Equal(t, "10:00", event.StartTime)
}

func TestMoveClassOccurrenceRecurring(t *testing.T) {
	f := newRescheduleFixture()

	event, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "09:00",
		Mode:         MoveModeRecurring,
	})
	require.NoError(t, err)

	require.NotNil(t, f.schedules.updated)
	assert.Equal(t, 3, f.schedules.updated.DayOfWeek) // Wednesday
	assert.Equal(t, "09:00", f.schedules.updated.StartTime)
	assert.Equal(t, "10:30", f.schedules.updated.EndTime)
	assert.Equal(t, weekWednesday, event.Date)
	assert.Empty(t, f.exceptions.byKey)
}

func TestMoveClassOccurrenceRecurringConflict(t *testing.T) {
	f := newRescheduleFixture()
	f.schedules.siblings = []models.Schedule{
		{ID: "sched-2", StartTime: "09:30", EndTime: "10:30"},
	}

	_, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "09:00",
		Mode:         MoveModeRecurring,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.schedules.updated)
}

func TestMoveClassOccurrenceFromExceptionTimes(t *testing.T) {
	// When the moved occurrence already has an override, its duration comes
	// from the override, not the pattern.
	f := newRescheduleFixture()
	f.exceptions.byKey = map[string]*models.ScheduleException{
		excKey("sched-1", weekMonday): {ID: "exc-1", ScheduleID: "sched-1", Date: weekMonday, StartTime: "13:00", EndTime: "13:45"},
	}

	_, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "09:00",
		Mode:         MoveModeSingle,
	})
	require.NoError(t, err)

	stored := f.exceptions.byKey[excKey("sched-1", weekWednesday)]
	require.NotNil(t, stored)
	assert.Equal(t, "09:45", stored.EndTime)
}

func TestMoveClassOccurrenceRejectsMidnightSpill(t *testing.T) {
	// A 23:30 start would push the preserved 90-minute duration past
	// midnight, wrapping the stored end time to 01:00 and breaking the
	// start-before-end ordering. Both modes refuse the move.
	f := newRescheduleFixture()

	_, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "23:30",
		Mode:         MoveModeSingle,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.exceptions.byKey)

	_, err = f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "23:30",
		Mode:         MoveModeRecurring,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.schedules.updated)
}

func TestMoveClassOccurrenceAllowsLateEvening(t *testing.T) {
	// 22:29 plus the 90-minute duration ends at 23:59, the latest
	// representable end; ending at 00:00 would already wrap.
	f := newRescheduleFixture()

	_, err := f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "22:29",
		Mode:         MoveModeSingle,
	})
	require.NoError(t, err)

	stored := f.exceptions.byKey[excKey("sched-1", weekWednesday)]
	require.NotNil(t, stored)
	assert.Equal(t, "22:29", stored.StartTime)
	assert.Equal(t, "23:59", stored.EndTime)

	_, err = f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-1", weekMonday), MoveEventRequest{
		NewDate:      weekTuesday,
		NewStartTime: "22:30",
		Mode:         MoveModeSingle,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMoveMeeting(t *testing.T) {
	f := newRescheduleFixture()

	event, err := f.svc.MoveOccurrence(context.Background(), models.MeetingEventID("meet-1"), MoveEventRequest{
		NewDate:      weekTuesday,
		NewStartTime: "09:00",
	})
	require.NoError(t, err)

	require.NotNil(t, f.meetings.updated)
	assert.Equal(t, weekTuesday, f.meetings.updated.Date)
	assert.Equal(t, "09:00", f.meetings.updated.StartTime)
	assert.Equal(t, "09:45", f.meetings.updated.EndTime)
	assert.Equal(t, 45, event.DurationMinutes)
}

func TestMoveMeetingRejectsMidnightSpill(t *testing.T) {
	f := newRescheduleFixture()

	_, err := f.svc.MoveOccurrence(context.Background(), models.MeetingEventID("meet-1"), MoveEventRequest{
		NewDate:      weekTuesday,
		NewStartTime: "23:30",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.meetings.updated)
}

func TestMoveMeetingNoOp(t *testing.T) {
	f := newRescheduleFixture()

	_, err := f.svc.MoveOccurrence(context.Background(), models.MeetingEventID("meet-1"), MoveEventRequest{
		NewDate:      weekMonday,
		NewStartTime: "07:30",
	})
	require.NoError(t, err)
	assert.Nil(t, f.meetings.updated)
}

func TestMoveTest(t *testing.T) {
	f := newRescheduleFixture()

	event, err := f.svc.MoveOccurrence(context.Background(), models.TestEventID("test-1"), MoveEventRequest{
		NewDate:      weekWednesday,
		NewStartTime: "11:00",
	})
	require.NoError(t, err)

	require.NotNil(t, f.tests.updated)
	assert.Equal(t, weekWednesday, f.tests.updated.TestDate)
	// The requested start time is ignored; tests keep their fixed slot.
	assert.Equal(t, "08:00", event.StartTime)
	assert.Equal(t, 90, event.DurationMinutes)
}

func TestMoveOccurrenceValidation(t *testing.T) {
	f := newRescheduleFixture()

	_, err := f.svc.MoveOccurrence(context.Background(), "holiday:x", MoveEventRequest{NewDate: weekMonday, NewStartTime: "10:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.MoveOccurrence(context.Background(), models.MeetingEventID("meet-1"), MoveEventRequest{NewDate: "bad", NewStartTime: "10:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.MoveOccurrence(context.Background(), models.ClassEventID("sched-missing", weekMonday), MoveEventRequest{
		NewDate: weekWednesday, NewStartTime: "10:00", Mode: MoveModeSingle,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
