package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/adiwidodo/classadmin-api/internal/models"
	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
	"github.com/adiwidodo/classadmin-api/pkg/export"
)

type exportScheduleReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Schedule, error)
}

// ExportService renders a class's weekly timetable as CSV or PDF.
type ExportService struct {
	schedules exportScheduleReader
	classes   classGetter
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(schedules exportScheduleReader, classes classGetter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		classes:   classes,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// RenderTimetable produces the export payload and its content type.
func (s *ExportService) RenderTimetable(ctx context.Context, classID, format string) ([]byte, string, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	schedules, err := s.schedules.ListByClass(ctx, classID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class schedules")
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Weekly timetable - %s", class.Name),
		Headers: []string{"Day", "Start", "End", "Duration (min)", "Exceptions"},
	}
	for _, sched := range schedules {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":            models.WeekdayName(sched.DayOfWeek),
			"Start":          sched.StartTime,
			"End":            sched.EndTime,
			"Duration (min)": fmt.Sprintf("%d", sched.DurationMinutes()),
			"Exceptions":     fmt.Sprintf("%d", len(sched.Exceptions)),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}
