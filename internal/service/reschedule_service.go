package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

// Move modes for class events. The distinction between "just this date"
// and "the whole weekly pattern" is a user intent that cannot be inferred,
// so the caller always supplies it explicitly.
const (
	MoveModeSingle    = "single-occurrence"
	MoveModeRecurring = "recurring"
)

type meetingStore interface {
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	Update(ctx context.Context, meeting *models.Meeting) error
}

type testStore interface {
	FindByID(ctx context.Context, id string) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
}

type rescheduleScheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	UpdateGuarded(ctx context.Context, schedule *models.Schedule, guard func(siblings []models.Schedule) error) error
}

type rescheduleExceptionStore interface {
	FindByScheduleAndDate(ctx context.Context, scheduleID, date string) (*models.ScheduleException, error)
	Upsert(ctx context.Context, exc *models.ScheduleException) error
}

// MoveEventRequest describes a drag-style move of one calendar event.
type MoveEventRequest struct {
	NewDate      string `json:"new_date" validate:"required"`
	NewStartTime string `json:"new_start_time" validate:"required"`
	Mode         string `json:"mode"`
}

// RescheduleService coordinates calendar event moves across the stores.
type RescheduleService struct {
	schedules  rescheduleScheduleStore
	exceptions rescheduleExceptionStore
	meetings   meetingStore
	tests      testStore
	classes    classGetter
	validator  *validator.Validate
	logger     *zap.Logger

	testStartTime    string
	testDurationMins int
}

// NewRescheduleService instantiates RescheduleService.
func NewRescheduleService(schedules rescheduleScheduleStore, exceptions rescheduleExceptionStore, meetings meetingStore, tests testStore, classes classGetter, testStartTime string, testDurationMins int, validate *validator.Validate, logger *zap.Logger) *RescheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := models.MinuteOfDay(testStartTime); err != nil {
		testStartTime = "08:00"
	}
	if testDurationMins <= 0 {
		testDurationMins = 90
	}
	return &RescheduleService{
		schedules:        schedules,
		exceptions:       exceptions,
		meetings:         meetings,
		tests:            tests,
		classes:          classes,
		validator:        validate,
		logger:           logger,
		testStartTime:    testStartTime,
		testDurationMins: testDurationMins,
	}
}

// MoveOccurrence applies a move to the event identified by eventID and
// returns the event as it will materialize after the move.
func (s *RescheduleService) MoveOccurrence(ctx context.Context, eventID string, req MoveEventRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	if _, err := models.ParseDate(req.NewDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	newStartMin, err := models.MinuteOfDay(req.NewStartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	kind, refID, originalDate, err := models.ParseEventID(eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	switch kind {
	case models.EventKindClass:
		return s.moveClassOccurrence(ctx, refID, originalDate, req, newStartMin)
	case models.EventKindMeeting:
		return s.moveMeeting(ctx, refID, req, newStartMin)
	case models.EventKindTest:
		return s.moveTest(ctx, refID, req)
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported event kind")
}

func (s *RescheduleService) moveClassOccurrence(ctx context.Context, scheduleID, originalDate string, req MoveEventRequest, newStartMin int) (*models.CalendarEvent, error) {
	if req.Mode != MoveModeSingle && req.Mode != MoveModeRecurring {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mode must be %q or %q for class events", MoveModeSingle, MoveModeRecurring))
	}
	if _, err := models.ParseDate(originalDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	// The occurrence's current times come from its exception when one
	// exists; otherwise the weekly pattern applies.
	currentStart, currentEnd := schedule.StartTime, schedule.EndTime
	if exc, excErr := s.exceptions.FindByScheduleAndDate(ctx, scheduleID, originalDate); excErr == nil && !exc.Cancelled {
		currentStart, currentEnd = exc.StartTime, exc.EndTime
	} else if excErr != nil && !errors.Is(excErr, sql.ErrNoRows) {
		return nil, appErrors.Wrap(excErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exception")
	}

	currentStartMin, err := models.MinuteOfDay(currentStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored occurrence has malformed times")
	}
	currentEndMin, err := models.MinuteOfDay(currentEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored occurrence has malformed times")
	}
	duration := currentEndMin - currentStartMin

	// Dropping an event back where it was is not a mutation.
	if req.NewDate == originalDate && req.NewStartTime == currentStart {
		event := s.classEventView(ctx, *schedule, originalDate, currentStart, duration, "")
		return &event, nil
	}

	if req.Mode == MoveModeSingle {
		if err := checkFitsDay(req.NewStartTime, duration); err != nil {
			return nil, err
		}
		exc := models.ScheduleException{
			ScheduleID: scheduleID,
			Date:       req.NewDate,
			StartTime:  req.NewStartTime,
			EndTime:    models.FormatMinuteOfDay(newStartMin + duration),
			Cancelled:  false,
		}
		if err := s.exceptions.Upsert(ctx, &exc); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store exception")
		}

		tag := models.EventTagRescheduled
		if wd, wdErr := models.WeekdayOf(req.NewDate); wdErr == nil && wd != schedule.DayOfWeek {
			tag = fmt.Sprintf("moved from %s", models.WeekdayName(schedule.DayOfWeek))
		}
		event := s.classEventView(ctx, *schedule, req.NewDate, req.NewStartTime, duration, tag)
		return &event, nil
	}

	// Recurring: the weekly pattern itself moves. The pattern keeps its own
	// duration, and the overlap rule is re-checked against the new
	// placement before anything commits.
	newDay, err := models.WeekdayOf(req.NewDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	patternDuration := schedule.DurationMinutes()
	if patternDuration <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInternal, "stored schedule has malformed times")
	}
	if err := checkFitsDay(req.NewStartTime, patternDuration); err != nil {
		return nil, err
	}

	updated := *schedule
	updated.DayOfWeek = newDay
	updated.StartTime = req.NewStartTime
	updated.EndTime = models.FormatMinuteOfDay(newStartMin + patternDuration)

	if err := s.schedules.UpdateGuarded(ctx, &updated, overlapGuard(newStartMin, newStartMin+patternDuration, updated.ID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, wrapScheduleWriteError(err, "failed to move schedule")
	}

	event := s.classEventView(ctx, updated, req.NewDate, updated.StartTime, patternDuration, "")
	return &event, nil
}

func (s *RescheduleService) moveMeeting(ctx context.Context, meetingID string, req MoveEventRequest, newStartMin int) (*models.CalendarEvent, error) {
	meeting, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}

	startMin, err := models.MinuteOfDay(meeting.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored meeting has malformed times")
	}
	endMin, err := models.MinuteOfDay(meeting.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored meeting has malformed times")
	}
	duration := endMin - startMin

	if req.NewDate != meeting.Date || req.NewStartTime != meeting.StartTime {
		if err := checkFitsDay(req.NewStartTime, duration); err != nil {
			return nil, err
		}
		meeting.Date = req.NewDate
		meeting.StartTime = req.NewStartTime
		meeting.EndTime = models.FormatMinuteOfDay(newStartMin + duration)
		if err := s.meetings.Update(ctx, meeting); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move meeting")
		}
	}

	return &models.CalendarEvent{
		ID:              models.MeetingEventID(meeting.ID),
		Title:           meeting.Title,
		Kind:            models.EventKindMeeting,
		Date:            meeting.Date,
		StartTime:       meeting.StartTime,
		DurationMinutes: duration,
		SourceRefs:      models.EventSourceRefs{MeetingID: meeting.ID},
	}, nil
}

func (s *RescheduleService) moveTest(ctx context.Context, testID string, req MoveEventRequest) (*models.CalendarEvent, error) {
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}

	// A test stores only a date; its start time is a display convention and
	// never part of the mutation.
	if req.NewDate != test.TestDate {
		test.TestDate = req.NewDate
		if err := s.tests.Update(ctx, test); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move test")
		}
	}

	return &models.CalendarEvent{
		ID:              models.TestEventID(test.ID),
		Title:           test.Title,
		Kind:            models.EventKindTest,
		Date:            test.TestDate,
		StartTime:       s.testStartTime,
		DurationMinutes: s.testDurationMins,
		SourceRefs:      models.EventSourceRefs{TestID: test.ID, ClassID: test.ClassID},
	}, nil
}

// checkFitsDay rejects moves whose preserved duration would reach
// midnight. End times are minute-of-day values with 23:59 as the latest
// representable instant, so an occurrence touching or crossing midnight
// would store a wrapped end earlier than its start.
func checkFitsDay(newStart string, duration int) error {
	startMin, err := models.MinuteOfDay(newStart)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if startMin+duration >= models.MinutesPerDay {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("a %d-minute occurrence starting at %s would not end before midnight", duration, newStart))
	}
	return nil
}

func (s *RescheduleService) classEventView(ctx context.Context, sched models.Schedule, date, start string, duration int, tag string) models.CalendarEvent {
	title := ""
	if class, err := s.classes.FindByID(ctx, sched.ClassID); err == nil {
		title = class.Name
	}
	return models.CalendarEvent{
		ID:              models.ClassEventID(sched.ID, date),
		Title:           title,
		Kind:            models.EventKindClass,
		Date:            date,
		StartTime:       start,
		DurationMinutes: duration,
		Tag:             tag,
		SourceRefs:      models.EventSourceRefs{ScheduleID: sched.ID, ClassID: sched.ClassID},
	}
}
