package models

import "time"

// Test stores only a calendar date, no time-of-day; the calendar assigns
// it a fixed display slot.
type Test struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Title     string    `db:"title" json:"title"`
	TestType  string    `db:"test_type" json:"test_type"`
	TestDate  string    `db:"test_date" json:"test_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TestFilter defines filter criteria for listing tests.
type TestFilter struct {
	ClassID  string
	FromDate string
	ToDate   string
	Page     int
	PageSize int
}
