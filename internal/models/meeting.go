package models

import (
	"time"

	"github.com/lib/pq"
)

// Meeting is a one-off dated event with its own time range. Meetings are
// not subject to the weekly schedule overlap rule.
type Meeting struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Location     string         `db:"location" json:"location"`
	Date         string         `db:"date" json:"date"`
	StartTime    string         `db:"start_time" json:"start_time"`
	EndTime      string         `db:"end_time" json:"end_time"`
	Participants pq.StringArray `db:"participants" json:"participants"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// MeetingFilter defines filter criteria for listing meetings.
type MeetingFilter struct {
	FromDate string
	ToDate   string
	Page     int
	PageSize int
}
