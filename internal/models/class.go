package models

import "time"

// Class represents a taught class or section. Scheduling reads it for
// existence checks and display names; ownership stays with class
// management.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Room      string    `db:"room" json:"room"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search   string
	Page     int
	PageSize int
}
