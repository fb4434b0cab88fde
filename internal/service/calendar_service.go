package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

type calendarScheduleReader interface {
	ListAll(ctx context.Context, classID string) ([]models.Schedule, error)
}

type calendarExceptionReader interface {
	ListByDateRange(ctx context.Context, from, to string) ([]models.ScheduleException, error)
}

type meetingRangeReader interface {
	ListByDateRange(ctx context.Context, from, to string) ([]models.Meeting, error)
}

type testRangeReader interface {
	ListByDateRange(ctx context.Context, from, to string) ([]models.Test, error)
}

type classGetter interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CalendarRequest bounds one materialization. ClassID optionally narrows
// class and test events to a single class; meetings are school-wide and
// only appear on the unfiltered calendar.
type CalendarRequest struct {
	From    string
	To      string
	ClassID string
}

// CalendarService expands weekly schedules, exceptions, meetings and tests
// into concrete dated events. Materialization is a pure read: it keeps no
// cache, so it is safe under any read concurrency and needs no
// invalidation after mutations.
type CalendarService struct {
	schedules  calendarScheduleReader
	exceptions calendarExceptionReader
	meetings   meetingRangeReader
	tests      testRangeReader
	classes    classGetter
	logger     *zap.Logger

	testStartTime    string
	testDurationMins int
}

// NewCalendarService constructs the materializer. testStartTime/-Duration
// define the fixed display slot for tests, which store only a date.
func NewCalendarService(schedules calendarScheduleReader, exceptions calendarExceptionReader, meetings meetingRangeReader, tests testRangeReader, classes classGetter, testStartTime string, testDurationMins int, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := models.MinuteOfDay(testStartTime); err != nil {
		testStartTime = "08:00"
	}
	if testDurationMins <= 0 {
		testDurationMins = 90
	}
	return &CalendarService{
		schedules:        schedules,
		exceptions:       exceptions,
		meetings:         meetings,
		tests:            tests,
		classes:          classes,
		logger:           logger,
		testStartTime:    testStartTime,
		testDurationMins: testDurationMins,
	}
}

// Materialize produces the time-ordered events for [from, to].
func (s *CalendarService) Materialize(ctx context.Context, req CalendarRequest) ([]models.CalendarEvent, error) {
	fromDate, err := models.ParseDate(req.From)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	toDate, err := models.ParseDate(req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if toDate.Before(fromDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date must not precede from date")
	}

	schedules, err := s.schedules.ListAll(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	exceptions, err := s.exceptions.ListByDateRange(ctx, req.From, req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exceptions")
	}

	scheduleByID := make(map[string]models.Schedule, len(schedules))
	byWeekday := make(map[int][]models.Schedule)
	for _, sched := range schedules {
		scheduleByID[sched.ID] = sched
		byWeekday[sched.DayOfWeek] = append(byWeekday[sched.DayOfWeek], sched)
	}

	excByDate := make(map[string][]models.ScheduleException)
	excByKey := make(map[string]models.ScheduleException)
	for _, exc := range exceptions {
		// Exceptions of schedules outside the class filter are dropped here.
		if _, ok := scheduleByID[exc.ScheduleID]; !ok {
			continue
		}
		excByDate[exc.Date] = append(excByDate[exc.Date], exc)
		excByKey[occurrenceKey(exc.ScheduleID, exc.Date)] = exc
	}

	classNames := map[string]string{}
	var events []models.CalendarEvent

	for d := fromDate; !d.After(toDate); d = d.AddDate(0, 0, 1) {
		date := models.FormatDate(d)
		weekday := int(d.Weekday())
		handled := map[string]bool{}

		// Pass 1: schedules whose weekly pattern lands on this date, with
		// exception precedence.
		for _, sched := range byWeekday[weekday] {
			key := occurrenceKey(sched.ID, date)
			handled[key] = true

			title, ok := s.classTitle(ctx, classNames, sched.ClassID)
			if !ok {
				continue
			}

			if exc, found := excByKey[key]; found {
				if exc.Cancelled {
					continue
				}
				event, err := classEvent(sched, title, date, exc.StartTime, exc.EndTime, models.EventTagRescheduled, exc.ID)
				if err != nil {
					s.logger.Warn("skipping malformed exception", zap.String("exception_id", exc.ID), zap.Error(err))
					continue
				}
				events = append(events, event)
				continue
			}

			event, err := classEvent(sched, title, date, sched.StartTime, sched.EndTime, "", "")
			if err != nil {
				s.logger.Warn("skipping malformed schedule", zap.String("schedule_id", sched.ID), zap.Error(err))
				continue
			}
			events = append(events, event)
		}

		// Pass 2: overrides moved onto this date from another weekday. The
		// (schedule, date) pairs already covered by pass 1 are skipped so an
		// occurrence never materializes twice.
		for _, exc := range excByDate[date] {
			key := occurrenceKey(exc.ScheduleID, exc.Date)
			if exc.Cancelled || handled[key] {
				continue
			}
			sched := scheduleByID[exc.ScheduleID]

			title, ok := s.classTitle(ctx, classNames, sched.ClassID)
			if !ok {
				continue
			}

			tag := fmt.Sprintf("moved from %s", models.WeekdayName(sched.DayOfWeek))
			event, err := classEvent(sched, title, date, exc.StartTime, exc.EndTime, tag, exc.ID)
			if err != nil {
				s.logger.Warn("skipping malformed exception", zap.String("exception_id", exc.ID), zap.Error(err))
				continue
			}
			events = append(events, event)
		}
	}

	if req.ClassID == "" {
		meetings, err := s.meetings.ListByDateRange(ctx, req.From, req.To)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meetings")
		}
		for _, meeting := range meetings {
			startMin, merr := models.MinuteOfDay(meeting.StartTime)
			endMin, eerr := models.MinuteOfDay(meeting.EndTime)
			if merr != nil || eerr != nil {
				s.logger.Warn("skipping malformed meeting", zap.String("meeting_id", meeting.ID))
				continue
			}
			events = append(events, models.CalendarEvent{
				ID:              models.MeetingEventID(meeting.ID),
				Title:           meeting.Title,
				Kind:            models.EventKindMeeting,
				Date:            meeting.Date,
				StartTime:       meeting.StartTime,
				DurationMinutes: endMin - startMin,
				SourceRefs:      models.EventSourceRefs{MeetingID: meeting.ID},
			})
		}
	}

	tests, err := s.tests.ListByDateRange(ctx, req.From, req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tests")
	}
	for _, test := range tests {
		if req.ClassID != "" && test.ClassID != req.ClassID {
			continue
		}
		events = append(events, models.CalendarEvent{
			ID:              models.TestEventID(test.ID),
			Title:           test.Title,
			Kind:            models.EventKindTest,
			Date:            test.TestDate,
			StartTime:       s.testStartTime,
			DurationMinutes: s.testDurationMins,
			SourceRefs:      models.EventSourceRefs{TestID: test.ID, ClassID: test.ClassID},
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		si, _ := models.MinuteOfDay(events[i].StartTime)
		sj, _ := models.MinuteOfDay(events[j].StartTime)
		return si < sj
	})

	return events, nil
}

// classTitle resolves a class display name with a per-call memo. A class
// that no longer exists drops its events rather than failing the whole
// materialization.
func (s *CalendarService) classTitle(ctx context.Context, memo map[string]string, classID string) (string, bool) {
	if title, ok := memo[classID]; ok {
		return title, title != ""
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load class for calendar", zap.String("class_id", classID), zap.Error(err))
		}
		memo[classID] = ""
		return "", false
	}
	memo[classID] = class.Name
	return class.Name, true
}

func classEvent(sched models.Schedule, title, date, start, end, tag, exceptionID string) (models.CalendarEvent, error) {
	startMin, err := models.MinuteOfDay(start)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	endMin, err := models.MinuteOfDay(end)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	return models.CalendarEvent{
		ID:              models.ClassEventID(sched.ID, date),
		Title:           title,
		Kind:            models.EventKindClass,
		Date:            date,
		StartTime:       start,
		DurationMinutes: endMin - startMin,
		Tag:             tag,
		SourceRefs: models.EventSourceRefs{
			ScheduleID:  sched.ID,
			ExceptionID: exceptionID,
			ClassID:     sched.ClassID,
		},
	}, nil
}

func occurrenceKey(scheduleID, date string) string {
	return scheduleID + "|" + date
}
