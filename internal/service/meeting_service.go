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

type meetingRepository interface {
	List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, int, error)
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	Create(ctx context.Context, meeting *models.Meeting) error
	Update(ctx context.Context, meeting *models.Meeting) error
	Delete(ctx context.Context, id string) error
}

// CreateMeetingRequest describes payload for creating a meeting.
type CreateMeetingRequest struct {
	Title        string   `json:"title" validate:"required"`
	Location     string   `json:"location"`
	Date         string   `json:"date" validate:"required"`
	StartTime    string   `json:"start_time" validate:"required"`
	EndTime      string   `json:"end_time" validate:"required"`
	Participants []string `json:"participants"`
}

// UpdateMeetingRequest updates an existing meeting.
type UpdateMeetingRequest struct {
	Title        string   `json:"title" validate:"required"`
	Location     string   `json:"location"`
	Date         string   `json:"date" validate:"required"`
	StartTime    string   `json:"start_time" validate:"required"`
	EndTime      string   `json:"end_time" validate:"required"`
	Participants []string `json:"participants"`
}

// MeetingService manages the meeting collaborator records.
type MeetingService struct {
	repo      meetingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMeetingService instantiates MeetingService.
func NewMeetingService(repo meetingRepository, validate *validator.Validate, logger *zap.Logger) *MeetingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingService{repo: repo, validator: validate, logger: logger}
}

// List returns meetings with pagination metadata.
func (s *MeetingService) List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, *models.Pagination, error) {
	meetings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list meetings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return meetings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a meeting by id.
func (s *MeetingService) Get(ctx context.Context, id string) (*models.Meeting, error) {
	meeting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	return meeting, nil
}

// Create inserts a new meeting.
func (s *MeetingService) Create(ctx context.Context, req CreateMeetingRequest) (*models.Meeting, error) {
	if err := s.validateTimes(req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}
	meeting := models.Meeting{
		Title:        req.Title,
		Location:     req.Location,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Participants: req.Participants,
	}
	if err := s.repo.Create(ctx, &meeting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meeting")
	}
	return &meeting, nil
}

// Update modifies a meeting.
func (s *MeetingService) Update(ctx context.Context, id string, req UpdateMeetingRequest) (*models.Meeting, error) {
	if err := s.validateTimes(req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}
	meeting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	meeting.Title = req.Title
	meeting.Location = req.Location
	meeting.Date = req.Date
	meeting.StartTime = req.StartTime
	meeting.EndTime = req.EndTime
	meeting.Participants = req.Participants
	if err := s.repo.Update(ctx, meeting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update meeting")
	}
	return meeting, nil
}

// Delete removes a meeting.
func (s *MeetingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete meeting")
	}
	return nil
}

func (s *MeetingService) validateTimes(date, start, end string) error {
	if date != "" {
		if _, err := models.ParseDate(date); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
	}
	if start != "" && end != "" {
		if _, _, err := parseOrderedTimes(start, end); err != nil {
			return err
		}
	}
	return nil
}
