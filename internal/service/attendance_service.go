package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	Update(ctx context.Context, record *models.Attendance) error
}

// AttendanceService handles daily attendance. Marking a student absent
// alerts their guardians.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentReader
	parents   studentParentsReader
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, students studentReader, parents studentParentsReader, n notifier, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, students: students, parents: parents, notifier: n, validator: validate, logger: logger}
}

// AttendanceRequest describes record and update payloads.
type AttendanceRequest struct {
	StudentID  string                  `json:"student_id" validate:"required"`
	Date       string                  `json:"date" validate:"required,datetime=2006-01-02"`
	Status     models.AttendanceStatus `json:"status" validate:"required"`
	Remarks    string                  `json:"remarks"`
	RecordedBy string                  `json:"recorded_by" validate:"required"`
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func validAttendanceStatus(status models.AttendanceStatus) bool {
	switch status {
	case models.AttendancePresent, models.AttendanceAbsent, models.AttendanceLate, models.AttendanceExcused:
		return true
	default:
		return false
	}
}

// List returns attendance rows with pagination.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an attendance record by ID.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.Attendance, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	return record, nil
}

// Record stores a day's attendance and alerts guardians on an absence.
func (s *AttendanceService) Record(ctx context.Context, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !validAttendanceStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	record := &models.Attendance{
		StudentID:  req.StudentID,
		Date:       date,
		Status:     req.Status,
		Remarks:    req.Remarks,
		RecordedBy: req.RecordedBy,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	if s.notifier != nil && req.Status == models.AttendanceAbsent {
		related := "attendance"
		// Guardians only; the absent student is not pinged about themselves.
		var guardianIDs []string
		parents, perr := s.parents.ParentsOfStudent(ctx, student.ID)
		if perr != nil {
			s.logger.Warn("failed to resolve parents for absence alert", zap.String("student_id", student.ID), zap.Error(perr))
		}
		for _, p := range parents {
			if p.UserID != nil {
				guardianIDs = append(guardianIDs, *p.UserID)
			}
		}
		s.notifier.NotifyMany(ctx, guardianIDs, NotificationInput{
			Title:        fmt.Sprintf("%s was absent today", student.FullName),
			Message:      fmt.Sprintf("%s was marked absent on %s. %s", student.FullName, req.Date, req.Remarks),
			Type:         models.NotificationAttendance,
			Priority:     models.PriorityHigh,
			RelatedModel: &related,
			RelatedID:    &record.ID,
		})
	}
	return record, nil
}

// Update corrects an existing attendance record.
func (s *AttendanceService) Update(ctx context.Context, id string, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !validAttendanceStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	record.Date = date
	record.Status = req.Status
	record.Remarks = req.Remarks
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
	}
	return record, nil
}
