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

const testColumns = "id, class_id, title, test_type, test_date, created_at, updated_at"

// TestRepository provides persistence for tests.
type TestRepository struct {
	db *sqlx.DB
}

// NewTestRepository creates a new test repository.
func NewTestRepository(db *sqlx.DB) *TestRepository {
	return &TestRepository{db: db}
}

// List returns tests with optional filtering and pagination.
func (r *TestRepository) List(ctx context.Context, filter models.TestFilter) ([]models.Test, int, error) {
	base := "FROM tests WHERE 1=1"
	var args []interface{}
	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.FromDate != "" {
		base += fmt.Sprintf(" AND test_date >= $%d", len(args)+1)
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		base += fmt.Sprintf(" AND test_date <= $%d", len(args)+1)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY test_date ASC LIMIT %d OFFSET %d", testColumns, base, size, offset)
	var tests []models.Test
	if err := r.db.SelectContext(ctx, &tests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tests: %w", err)
	}

	return tests, total, nil
}

// ListByDateRange returns tests dated within [from, to].
func (r *TestRepository) ListByDateRange(ctx context.Context, from, to string) ([]models.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE test_date >= $1 AND test_date <= $2 ORDER BY test_date ASC`
	var tests []models.Test
	if err := r.db.SelectContext(ctx, &tests, query, from, to); err != nil {
		return nil, fmt.Errorf("list tests by date range: %w", err)
	}
	return tests, nil
}

// FindByID loads a test by id.
func (r *TestRepository) FindByID(ctx context.Context, id string) (*models.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE id = $1`
	var test models.Test
	if err := r.db.GetContext(ctx, &test, query, id); err != nil {
		return nil, err
	}
	return &test, nil
}

// Create stores a new test record.
func (r *TestRepository) Create(ctx context.Context, test *models.Test) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if test.CreatedAt.IsZero() {
		test.CreatedAt = now
	}
	test.UpdatedAt = now

	const query = `INSERT INTO tests (id, class_id, title, test_type, test_date, created_at, updated_at) VALUES (:id, :class_id, :title, :test_type, :test_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("create test: %w", err)
	}
	return nil
}

// Update modifies a test record.
func (r *TestRepository) Update(ctx context.Context, test *models.Test) error {
	test.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tests SET class_id = :class_id, title = :title, test_type = :test_type, test_date = :test_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, test)
	if err != nil {
		return fmt.Errorf("update test: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a test by id.
func (r *TestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
