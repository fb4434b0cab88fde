package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

// CreateClassRequest describes payload for creating a class.
type CreateClassRequest struct {
	Name string `json:"name" validate:"required"`
	Room string `json:"room"`
}

// UpdateClassRequest updates an existing class.
type UpdateClassRequest struct {
	Name string `json:"name" validate:"required"`
	Room string `json:"room"`
}

// ClassService manages the class collaborator records.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService instantiates ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create inserts a new class.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := models.Class{Name: req.Name, Room: req.Room}
	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return &class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	class.Name = req.Name
	class.Room = req.Room
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}
