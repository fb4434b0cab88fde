package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

type exceptionRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleException, error)
	FindByScheduleAndDate(ctx context.Context, scheduleID, date string) (*models.ScheduleException, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleException, error)
	ListByDateRange(ctx context.Context, from, to string) ([]models.ScheduleException, error)
	Create(ctx context.Context, exc *models.ScheduleException) error
	Upsert(ctx context.Context, exc *models.ScheduleException) error
	Update(ctx context.Context, exc *models.ScheduleException) error
	Delete(ctx context.Context, id string) error
}

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

// CreateExceptionRequest overrides or cancels one dated occurrence.
type CreateExceptionRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Cancelled bool   `json:"cancelled"`
}

// UpdateExceptionRequest carries partial updates; nil fields stay unchanged.
type UpdateExceptionRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Cancelled *bool   `json:"cancelled"`
}

// ExceptionService manages per-date schedule exceptions.
type ExceptionService struct {
	repo      exceptionRepository
	schedules scheduleReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExceptionService instantiates ExceptionService.
func NewExceptionService(repo exceptionRepository, schedules scheduleReader, validate *validator.Validate, logger *zap.Logger) *ExceptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExceptionService{repo: repo, schedules: schedules, validator: validate, logger: logger}
}

// ListBySchedule returns a schedule's exceptions ordered by date.
func (s *ExceptionService) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleException, error) {
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	exceptions, err := s.repo.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exceptions")
	}
	return exceptions, nil
}

// Create stores a new exception for one dated occurrence. A second
// exception for the same (schedule, date) is a conflict, never a second
// row.
func (s *ExceptionService) Create(ctx context.Context, scheduleID string, req CreateExceptionRequest) (*models.ScheduleException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}
	if _, err := models.ParseDate(req.Date); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	// A cancelled exception suppresses the occurrence outright; its times
	// are stored but never interpreted, so only override times are checked.
	if !req.Cancelled {
		if _, _, err := parseOrderedTimes(req.StartTime, req.EndTime); err != nil {
			return nil, err
		}
	}

	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if existing, err := s.repo.FindByScheduleAndDate(ctx, scheduleID, req.Date); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an exception already exists for this date")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing exception")
	}

	exc := models.ScheduleException{
		ScheduleID: scheduleID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Cancelled:  req.Cancelled,
	}
	if err := s.repo.Create(ctx, &exc); err != nil {
		// The unique constraint closes the races the pre-check cannot.
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an exception already exists for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exception")
	}
	return &exc, nil
}

// Update applies partial changes to an exception.
func (s *ExceptionService) Update(ctx context.Context, id string, req UpdateExceptionRequest) (*models.ScheduleException, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exception not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exception")
	}

	updated := *existing
	if req.Date != nil {
		if _, err := models.ParseDate(*req.Date); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		updated.Date = *req.Date
	}
	if req.StartTime != nil {
		updated.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		updated.EndTime = *req.EndTime
	}
	if req.Cancelled != nil {
		updated.Cancelled = *req.Cancelled
	}

	if !updated.Cancelled {
		if _, _, err := parseOrderedTimes(updated.StartTime, updated.EndTime); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exception not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an exception already exists for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exception")
	}
	return &updated, nil
}

// Delete removes an exception by id.
func (s *ExceptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exception")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
