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

type testRepository interface {
	List(ctx context.Context, filter models.TestFilter) ([]models.Test, int, error)
	FindByID(ctx context.Context, id string) (*models.Test, error)
	Create(ctx context.Context, test *models.Test) error
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id string) error
}

// CreateTestRequest describes payload for creating a test.
type CreateTestRequest struct {
	ClassID  string `json:"class_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	TestType string `json:"test_type"`
	TestDate string `json:"test_date" validate:"required"`
}

// UpdateTestRequest updates an existing test.
type UpdateTestRequest struct {
	ClassID  string `json:"class_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	TestType string `json:"test_type"`
	TestDate string `json:"test_date" validate:"required"`
}

// TestService manages the test collaborator records.
type TestService struct {
	repo      testRepository
	classes   classReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTestService instantiates TestService.
func NewTestService(repo testRepository, classes classReader, validate *validator.Validate, logger *zap.Logger) *TestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TestService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns tests with pagination metadata.
func (s *TestService) List(ctx context.Context, filter models.TestFilter) ([]models.Test, *models.Pagination, error) {
	tests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return tests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a test by id.
func (s *TestService) Get(ctx context.Context, id string) (*models.Test, error) {
	test, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}
	return test, nil
}

// Create inserts a new test.
func (s *TestService) Create(ctx context.Context, req CreateTestRequest) (*models.Test, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test payload")
	}
	if _, err := models.ParseDate(req.TestDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	exists, err := s.classes.Exists(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	test := models.Test{ClassID: req.ClassID, Title: req.Title, TestType: req.TestType, TestDate: req.TestDate}
	if err := s.repo.Create(ctx, &test); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create test")
	}
	return &test, nil
}

// Update modifies a test.
func (s *TestService) Update(ctx context.Context, id string, req UpdateTestRequest) (*models.Test, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test payload")
	}
	if _, err := models.ParseDate(req.TestDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	test, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}
	test.ClassID = req.ClassID
	test.Title = req.Title
	test.TestType = req.TestType
	test.TestDate = req.TestDate
	if err := s.repo.Update(ctx, test); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update test")
	}
	return test, nil
}

// Delete removes a test.
func (s *TestService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete test")
	}
	return nil
}
