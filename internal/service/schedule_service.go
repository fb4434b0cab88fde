package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

type scheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByClass(ctx context.Context, classID string) ([]models.Schedule, error)
	ListAll(ctx context.Context, classID string) ([]models.Schedule, error)
	CreateGuarded(ctx context.Context, schedule *models.Schedule, guard func(siblings []models.Schedule) error) error
	UpdateGuarded(ctx context.Context, schedule *models.Schedule, guard func(siblings []models.Schedule) error) error
	Delete(ctx context.Context, id string) error
}

type classReader interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CreateScheduleRequest describes payload for creating a weekly slot.
type CreateScheduleRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// UpdateScheduleRequest carries partial updates; nil fields stay unchanged.
type UpdateScheduleRequest struct {
	DayOfWeek *int    `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// ScheduleService coordinates weekly slot mutations and the overlap guard.
type ScheduleService struct {
	repo      scheduleRepository
	classes   classReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, classes classReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// Get returns a schedule with its exceptions attached.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// ListByClass returns a class's schedules, each with its exceptions.
func (s *ScheduleService) ListByClass(ctx context.Context, classID string) ([]models.Schedule, error) {
	exists, err := s.classes.Exists(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	schedules, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class schedules")
	}
	return schedules, nil
}

// Create inserts a new weekly slot. The overlap guard runs inside the
// repository transaction against siblings sharing (class, weekday).
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	startMin, endMin, err := parseOrderedTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	exists, err := s.classes.Exists(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	schedule := models.Schedule{
		ClassID:   req.ClassID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	if err := s.repo.CreateGuarded(ctx, &schedule, overlapGuard(startMin, endMin, "")); err != nil {
		return nil, wrapScheduleWriteError(err, "failed to create schedule")
	}
	schedule.Exceptions = []models.ScheduleException{}
	return &schedule, nil
}

// Update applies partial changes to a slot, re-validating time ordering and
// re-running the overlap check without counting the slot against itself.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	updated := *existing
	if req.DayOfWeek != nil {
		updated.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		updated.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		updated.EndTime = *req.EndTime
	}

	startMin, endMin, err := parseOrderedTimes(updated.StartTime, updated.EndTime)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGuarded(ctx, &updated, overlapGuard(startMin, endMin, updated.ID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, wrapScheduleWriteError(err, "failed to update schedule")
	}
	return &updated, nil
}

// Delete removes a slot; its exceptions go with it.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

// overlapGuard builds the transaction guard enforcing the weekly overlap
// invariant via the pure detector. The conflicting ids ride along in the
// error details so the 409 body always names the blocking schedules.
func overlapGuard(startMin, endMin int, excludeID string) func(siblings []models.Schedule) error {
	return func(siblings []models.Schedule) error {
		if ids := OverlapIDs(startMin, endMin, siblings, excludeID); len(ids) > 0 {
			domainErr := &models.ScheduleConflictError{
				Message:        "time slot overlaps an existing schedule",
				ConflictingIDs: ids,
			}
			appErr := appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message)
			appErr.Details = domainErr
			return appErr
		}
		return nil
	}
}

// parseOrderedTimes validates both "HH:MM" values and their ordering.
func parseOrderedTimes(start, end string) (int, int, error) {
	startMin, err := models.MinuteOfDay(start)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	endMin, err := models.MinuteOfDay(end)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if startMin >= endMin {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("start_time %s must be before end_time %s", start, end))
	}
	return startMin, endMin, nil
}

// wrapScheduleWriteError keeps conflict errors intact and downgrades the
// rest to internal errors.
func wrapScheduleWriteError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
