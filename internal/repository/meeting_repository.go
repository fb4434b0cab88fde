package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/adiwidodo/classadmin-api/internal/models"
)

const meetingColumns = "id, title, location, date, start_time, end_time, participants, created_at, updated_at"

// MeetingRepository provides persistence for meetings.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository creates a new meeting repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// List returns meetings with optional date bounds and pagination.
func (r *MeetingRepository) List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, int, error) {
	base := "FROM meetings WHERE 1=1"
	var args []interface{}
	if filter.FromDate != "" {
		base += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		base += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, filter.ToDate)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC, start_time ASC LIMIT %d OFFSET %d", meetingColumns, base, size, offset)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list meetings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count meetings: %w", err)
	}

	return meetings, total, nil
}

// ListByDateRange returns meetings dated within [from, to].
func (r *MeetingRepository) ListByDateRange(ctx context.Context, from, to string) ([]models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE date >= $1 AND date <= $2 ORDER BY date ASC, start_time ASC`
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, from, to); err != nil {
		return nil, fmt.Errorf("list meetings by date range: %w", err)
	}
	return meetings, nil
}

// FindByID loads a meeting by id.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// Create stores a new meeting record.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	meeting.UpdatedAt = now

	const query = `INSERT INTO meetings (id, title, location, date, start_time, end_time, participants, created_at, updated_at) VALUES (:id, :title, :location, :date, :start_time, :end_time, :participants, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meeting); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// Update modifies a meeting record.
func (r *MeetingRepository) Update(ctx context.Context, meeting *models.Meeting) error {
	meeting.UpdatedAt = time.Now().UTC()
	const query = `UPDATE meetings SET title = :title, location = :location, date = :date, start_time = :start_time, end_time = :end_time, participants = :participants, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, meeting)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a meeting by id.
func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
