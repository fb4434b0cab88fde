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

const scheduleColumns = "id, class_id, day_of_week, start_time, end_time, created_at, updated_at"

// ScheduleRepository provides persistence for weekly schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	attached := []models.Schedule{sched}
	if err := r.attachExceptions(ctx, attached); err != nil {
		return nil, err
	}
	return &attached[0], nil
}

// ListByClass returns schedules for a class ordered by day/time, each with
// its exceptions attached.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE class_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, classID); err != nil {
		return nil, fmt.Errorf("list schedules by class: %w", err)
	}
	if err := r.attachExceptions(ctx, schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListAll returns every schedule, optionally narrowed to one class.
func (r *ScheduleRepository) ListAll(ctx context.Context, classID string) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if classID != "" {
		query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE class_id = $1`
		if err := r.db.SelectContext(ctx, &schedules, query, classID); err != nil {
			return nil, fmt.Errorf("list schedules: %w", err)
		}
		return schedules, nil
	}
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// CreateGuarded inserts a schedule after running the supplied guard against
// the sibling slots sharing (class_id, day_of_week). An advisory lock on
// the slot group serializes concurrent writers even when no sibling rows
// exist yet (FOR UPDATE over an empty set locks nothing), so two
// concurrent requests cannot both pass the guard and commit overlapping
// slots.
func (r *ScheduleRepository) CreateGuarded(ctx context.Context, schedule *models.Schedule, guard func(siblings []models.Schedule) error) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var siblings []models.Schedule
	if err = lockSlotGroup(ctx, tx, schedule.ClassID, schedule.DayOfWeek); err != nil {
		return err
	}
	if err = tx.SelectContext(ctx, &siblings, `SELECT `+scheduleColumns+` FROM schedules WHERE class_id = $1 AND day_of_week = $2 FOR UPDATE`, schedule.ClassID, schedule.DayOfWeek); err != nil {
		return fmt.Errorf("lock sibling schedules: %w", err)
	}
	if err = guard(siblings); err != nil {
		return err
	}

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO schedules (id, class_id, day_of_week, start_time, end_time, created_at, updated_at) VALUES (:id, :class_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}
	return nil
}

// UpdateGuarded rewrites a schedule under the same transactional guard as
// CreateGuarded. The guard sees the siblings of the schedule's new
// (class_id, day_of_week) placement; filtering out the updated record
// itself is the guard's job.
func (r *ScheduleRepository) UpdateGuarded(ctx context.Context, schedule *models.Schedule, guard func(siblings []models.Schedule) error) error {
	schedule.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var siblings []models.Schedule
	if err = lockSlotGroup(ctx, tx, schedule.ClassID, schedule.DayOfWeek); err != nil {
		return err
	}
	if err = tx.SelectContext(ctx, &siblings, `SELECT `+scheduleColumns+` FROM schedules WHERE class_id = $1 AND day_of_week = $2 FOR UPDATE`, schedule.ClassID, schedule.DayOfWeek); err != nil {
		return fmt.Errorf("lock sibling schedules: %w", err)
	}
	if err = guard(siblings); err != nil {
		return err
	}

	var res sql.Result
	res, err = tx.NamedExecContext(ctx, `UPDATE schedules SET class_id = :class_id, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`, schedule)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule and all exceptions anchored to it. An
// exception never outlives its parent schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_exceptions WHERE schedule_id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule exceptions: %w", err)
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete schedule: %w", err)
	}
	return nil
}

// lockSlotGroup takes a transaction-scoped advisory lock keyed on the
// (class_id, day_of_week) pair. It releases automatically at commit or
// rollback.
func lockSlotGroup(ctx context.Context, tx *sqlx.Tx, classID string, dayOfWeek int) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2::text, 0))`, classID, dayOfWeek); err != nil {
		return fmt.Errorf("lock schedule slot group: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) attachExceptions(ctx context.Context, schedules []models.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	ids := make([]string, len(schedules))
	for i, s := range schedules {
		ids[i] = s.ID
	}

	query, args, err := sqlx.In(`SELECT `+exceptionColumns+` FROM schedule_exceptions WHERE schedule_id IN (?) ORDER BY date ASC`, ids)
	if err != nil {
		return fmt.Errorf("build exception query: %w", err)
	}
	query = r.db.Rebind(query)

	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, args...); err != nil {
		return fmt.Errorf("list schedule exceptions: %w", err)
	}

	byschedule := make(map[string][]models.ScheduleException, len(schedules))
	for _, exc := range exceptions {
		byschedule[exc.ScheduleID] = append(byschedule[exc.ScheduleID], exc)
	}
	for i := range schedules {
		attached := byschedule[schedules[i].ID]
		if attached == nil {
			attached = []models.ScheduleException{}
		}
		schedules[i].Exceptions = attached
	}
	return nil
}
