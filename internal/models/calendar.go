package models

import (
	"fmt"
	"strings"
)

// EventKind discriminates the source of a materialized calendar event.
type EventKind string

const (
	EventKindClass   EventKind = "class"
	EventKindMeeting EventKind = "meeting"
	EventKindTest    EventKind = "test"
)

// Tags attached to class events whose occurrence differs from the weekly
// pattern.
const (
	EventTagRescheduled = "rescheduled"
)

// EventSourceRefs points back at the records an event was derived from.
type EventSourceRefs struct {
	ScheduleID  string `json:"schedule_id,omitempty"`
	ExceptionID string `json:"exception_id,omitempty"`
	MeetingID   string `json:"meeting_id,omitempty"`
	TestID      string `json:"test_id,omitempty"`
	ClassID     string `json:"class_id,omitempty"`
}

// CalendarEvent is a derived occurrence on a concrete date. It is never
// persisted; every materialization recomputes it from store state.
type CalendarEvent struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Kind            EventKind       `json:"kind"`
	Date            string          `json:"date"`
	StartTime       string          `json:"start_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Tag             string          `json:"tag,omitempty"`
	SourceRefs      EventSourceRefs `json:"source_refs"`
}

// ClassEventID builds the identifier of a class occurrence. The date is
// part of the identity because the same schedule materializes once per
// covered day.
func ClassEventID(scheduleID, date string) string {
	return fmt.Sprintf("%s:%s:%s", EventKindClass, scheduleID, date)
}

// MeetingEventID builds the identifier of a meeting occurrence.
func MeetingEventID(meetingID string) string {
	return fmt.Sprintf("%s:%s", EventKindMeeting, meetingID)
}

// TestEventID builds the identifier of a test occurrence.
func TestEventID(testID string) string {
	return fmt.Sprintf("%s:%s", EventKindTest, testID)
}

// ParseEventID decomposes an event identifier into its kind, the source
// record id and, for class events, the occurrence date.
func ParseEventID(id string) (EventKind, string, string, error) {
	parts := strings.Split(id, ":")
	switch {
	case len(parts) == 3 && parts[0] == string(EventKindClass):
		return EventKindClass, parts[1], parts[2], nil
	case len(parts) == 2 && parts[0] == string(EventKindMeeting):
		return EventKindMeeting, parts[1], "", nil
	case len(parts) == 2 && parts[0] == string(EventKindTest):
		return EventKindTest, parts[1], "", nil
	}
	return "", "", "", fmt.Errorf("malformed event id %q", id)
}
