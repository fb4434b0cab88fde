package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/adiwidodo/classadmin-api/internal/models"
)

const exceptionColumns = "id, schedule_id, date, start_time, end_time, cancelled, created_at"

// ExceptionRepository provides persistence for per-date schedule
// exceptions. The table carries UNIQUE(schedule_id, date), so a duplicate
// create surfaces as a unique violation even under concurrent requests.
type ExceptionRepository struct {
	db *sqlx.DB
}

// NewExceptionRepository creates a new exception repository.
func NewExceptionRepository(db *sqlx.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// FindByID loads an exception by id.
func (r *ExceptionRepository) FindByID(ctx context.Context, id string) (*models.ScheduleException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM schedule_exceptions WHERE id = $1`
	var exc models.ScheduleException
	if err := r.db.GetContext(ctx, &exc, query, id); err != nil {
		return nil, err
	}
	return &exc, nil
}

// FindByScheduleAndDate loads the exception for one dated occurrence.
// Returns sql.ErrNoRows when none exists.
func (r *ExceptionRepository) FindByScheduleAndDate(ctx context.Context, scheduleID, date string) (*models.ScheduleException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM schedule_exceptions WHERE schedule_id = $1 AND date = $2`
	var exc models.ScheduleException
	if err := r.db.GetContext(ctx, &exc, query, scheduleID, date); err != nil {
		return nil, err
	}
	return &exc, nil
}

// ListBySchedule returns the exceptions of a schedule ordered by date.
func (r *ExceptionRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM schedule_exceptions WHERE schedule_id = $1 ORDER BY date ASC`
	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list exceptions by schedule: %w", err)
	}
	return exceptions, nil
}

// ListByDateRange returns every exception dated within [from, to],
// regardless of the owning schedule's weekday.
func (r *ExceptionRepository) ListByDateRange(ctx context.Context, from, to string) ([]models.ScheduleException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM schedule_exceptions WHERE date >= $1 AND date <= $2 ORDER BY date ASC`
	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, from, to); err != nil {
		return nil, fmt.Errorf("list exceptions by date range: %w", err)
	}
	return exceptions, nil
}

// Create stores a new exception. A duplicate (schedule_id, date) pair is
// reported via IsUniqueViolation on the returned error.
func (r *ExceptionRepository) Create(ctx context.Context, exc *models.ScheduleException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO schedule_exceptions (id, schedule_id, date, start_time, end_time, cancelled, created_at) VALUES (:id, :schedule_id, :date, :start_time, :end_time, :cancelled, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exc); err != nil {
		return fmt.Errorf("create schedule exception: %w", err)
	}
	return nil
}

// Upsert inserts the exception or, when one already exists for the same
// (schedule_id, date), rewrites its times and cancelled flag in place.
// Repeating the same call converges to the same stored row.
func (r *ExceptionRepository) Upsert(ctx context.Context, exc *models.ScheduleException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO schedule_exceptions (id, schedule_id, date, start_time, end_time, cancelled, created_at)
		VALUES (:id, :schedule_id, :date, :start_time, :end_time, :cancelled, :created_at)
		ON CONFLICT (schedule_id, date)
		DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, cancelled = EXCLUDED.cancelled`
	if _, err := r.db.NamedExecContext(ctx, query, exc); err != nil {
		return fmt.Errorf("upsert schedule exception: %w", err)
	}
	return nil
}

// Update rewrites an existing exception.
func (r *ExceptionRepository) Update(ctx context.Context, exc *models.ScheduleException) error {
	const query = `UPDATE schedule_exceptions SET date = :date, start_time = :start_time, end_time = :end_time, cancelled = :cancelled WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, exc)
	if err != nil {
		return fmt.Errorf("update schedule exception: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an exception by id.
func (r *ExceptionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule exception: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
