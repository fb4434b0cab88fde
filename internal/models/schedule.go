package models

import "time"

// Schedule represents one weekly recurring time slot for a class.
// DayOfWeek follows time.Weekday numbering (0 = Sunday … 6 = Saturday);
// StartTime/EndTime are zero-padded "HH:MM" strings with minute precision.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Exceptions is populated on list/detail reads; it is never written
	// through this struct.
	Exceptions []ScheduleException `db:"-" json:"exceptions"`
}

// DurationMinutes returns the slot length, or 0 when the stored times are
// malformed (writes validate, so that only happens on hand-edited rows).
func (s Schedule) DurationMinutes() int {
	start, err := MinuteOfDay(s.StartTime)
	if err != nil {
		return 0
	}
	end, err := MinuteOfDay(s.EndTime)
	if err != nil {
		return 0
	}
	return end - start
}

// ScheduleException overrides or cancels a single dated occurrence of a
// schedule. At most one exception may exist per (ScheduleID, Date); when
// Cancelled is true the occurrence is suppressed and the stored times are
// irrelevant, otherwise they replace the schedule's times for that date.
type ScheduleException struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"schedule_id"`
	Date       string    `db:"date" json:"date"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Cancelled  bool      `db:"cancelled" json:"cancelled"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ScheduleConflictError reports the schedules whose weekly interval
// overlaps a rejected candidate.
type ScheduleConflictError struct {
	Message        string   `json:"message"`
	ConflictingIDs []string `json:"conflicting_ids"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
