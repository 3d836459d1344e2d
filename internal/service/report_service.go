package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
	"github.com/edubridge/edubridge-api/pkg/export"
)

// ReportFormat selects the rendered output type.
type ReportFormat string

const (
	FormatCSV ReportFormat = "csv"
	FormatPDF ReportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportService renders grade and attendance reports as CSV or PDF.
type ReportService struct {
	grades     gradeRepository
	attendance attendanceRepository
	students   studentReader
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(grades gradeRepository, attendance attendanceRepository, students studentReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{grades: grades, attendance: attendance, students: students, csv: csv, pdf: pdf, logger: logger}
}

// Report bundles rendered bytes with response metadata.
type Report struct {
	Content     []byte
	ContentType string
	Filename    string
}

// GradeReport renders a student's grade sheet.
func (s *ReportService) GradeReport(ctx context.Context, studentID string, format ReportFormat) (*Report, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grades, _, err := s.grades.List(ctx, models.GradeFilter{StudentID: studentID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	dataset := export.Dataset{
		Headers: []string{"Subject", "Exam", "Score", "Max Score", "Remarks"},
	}
	for _, g := range grades {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Subject":   g.Subject,
			"Exam":      g.Exam,
			"Score":     fmt.Sprintf("%.1f", g.Score),
			"Max Score": fmt.Sprintf("%.1f", g.MaxScore),
			"Remarks":   g.Remarks,
		})
	}

	title := fmt.Sprintf("Grade report - %s (%s %s)", student.FullName, student.Class, student.Section)
	return s.render(dataset, title, fmt.Sprintf("grades_%s", studentID), format)
}

// AttendanceReport renders a student's attendance log.
func (s *ReportService) AttendanceReport(ctx context.Context, studentID string, format ReportFormat) (*Report, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, _, err := s.attendance.List(ctx, models.AttendanceFilter{StudentID: studentID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Status", "Remarks"},
	}
	for _, a := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    a.Date.Format("2006-01-02"),
			"Status":  string(a.Status),
			"Remarks": a.Remarks,
		})
	}

	title := fmt.Sprintf("Attendance report - %s (%s %s)", student.FullName, student.Class, student.Section)
	return s.render(dataset, title, fmt.Sprintf("attendance_%s", studentID), format)
}

func (s *ReportService) render(dataset export.Dataset, title, basename string, format ReportFormat) (*Report, error) {
	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &Report{Content: content, ContentType: "text/csv", Filename: basename + ".csv"}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &Report{Content: content, ContentType: "application/pdf", Filename: basename + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
