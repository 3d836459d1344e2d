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
	"github.com/edubridge/edubridge-api/pkg/export"
)

type feeRepository interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, int, error)
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	Create(ctx context.Context, fee *models.Fee) error
	RecordPayment(ctx context.Context, fee *models.Fee) error
	Delete(ctx context.Context, id string) error
}

type receiptRenderer interface {
	RenderReceipt(r export.Receipt, schoolName string) ([]byte, error)
}

// FeeService handles fee assignment and payment. Assigning a fee alerts the
// family; recording a payment produces a PDF receipt.
type FeeService struct {
	repo      feeRepository
	students  studentReader
	parents   studentParentsReader
	notifier  notifier
	receipts  receiptRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs a FeeService.
func NewFeeService(repo feeRepository, students studentReader, parents studentParentsReader, n notifier, receipts receiptRenderer, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{repo: repo, students: students, parents: parents, notifier: n, receipts: receipts, validator: validate, logger: logger}
}

// CreateFeeRequest describes the fee assignment payload.
type CreateFeeRequest struct {
	StudentID   string    `json:"student_id" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// PayFeeRequest describes the payment payload.
type PayFeeRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// List returns fees with pagination.
func (s *FeeService) List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, *models.Pagination, error) {
	fees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return fees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a fee by ID.
func (s *FeeService) Get(ctx context.Context, id string) (*models.Fee, error) {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	return fee, nil
}

// Create assigns a fee to a student and alerts the family.
func (s *FeeService) Create(ctx context.Context, req CreateFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	fee := &models.Fee{
		StudentID:   req.StudentID,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Status:      models.FeePending,
	}
	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}

	if s.notifier != nil {
		related := "fees"
		s.notifier.NotifyMany(ctx, familyUserIDs(ctx, student, s.parents, s.logger), NotificationInput{
			Title:        fmt.Sprintf("Fee due for %s", student.FullName),
			Message:      fmt.Sprintf("%s: %.2f due by %s", req.Description, req.Amount, req.DueDate.Format("2006-01-02")),
			Type:         models.NotificationFee,
			Priority:     models.PriorityHigh,
			RelatedModel: &related,
			RelatedID:    &fee.ID,
		})
	}
	return fee, nil
}

// RecordPayment marks a fee paid, stamps a receipt number and alerts the
// family that payment was received.
func (s *FeeService) RecordPayment(ctx context.Context, id string, req PayFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	if fee.Status == models.FeePaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee is already paid")
	}

	now := time.Now().UTC()
	receiptNumber := fmt.Sprintf("RCP-%s-%s", now.Format("20060102"), fee.ID[:8])
	fee.Status = models.FeePaid
	fee.PaidAt = &now
	fee.PaidAmount = &req.Amount
	fee.ReceiptNumber = &receiptNumber
	if err := s.repo.RecordPayment(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if s.notifier != nil {
		student, serr := s.students.FindByID(ctx, fee.StudentID)
		if serr != nil {
			s.logger.Warn("failed to load student for payment notification", zap.String("fee_id", fee.ID), zap.Error(serr))
		} else {
			related := "fees"
			s.notifier.NotifyMany(ctx, familyUserIDs(ctx, student, s.parents, s.logger), NotificationInput{
				Title:        "Payment received",
				Message:      fmt.Sprintf("Payment of %.2f for %s recorded. Receipt %s", req.Amount, fee.Description, receiptNumber),
				Type:         models.NotificationFee,
				Priority:     models.PriorityMedium,
				RelatedModel: &related,
				RelatedID:    &fee.ID,
			})
		}
	}
	return fee, nil
}

// Receipt renders the payment receipt PDF for a paid fee.
func (s *FeeService) Receipt(ctx context.Context, id string) ([]byte, string, error) {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	if fee.Status != models.FeePaid || fee.ReceiptNumber == nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "receipt is only available for paid fees")
	}

	student, err := s.students.FindByID(ctx, fee.StudentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	paidAt := ""
	if fee.PaidAt != nil {
		paidAt = fee.PaidAt.Format("2006-01-02 15:04")
	}
	amount := fee.Amount
	if fee.PaidAmount != nil {
		amount = *fee.PaidAmount
	}
	pdf, err := s.receipts.RenderReceipt(export.Receipt{
		Number:      *fee.ReceiptNumber,
		StudentName: student.FullName,
		Class:       student.Class,
		Section:     student.Section,
		Description: fee.Description,
		Amount:      fmt.Sprintf("%.2f", amount),
		PaidAt:      paidAt,
	}, "EduBridge School")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, *fee.ReceiptNumber, nil
}

// Delete removes an unpaid fee.
func (s *FeeService) Delete(ctx context.Context, id string) error {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	if fee.Status == models.FeePaid {
		return appErrors.Clone(appErrors.ErrConflict, "paid fees cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee")
	}
	return nil
}
