package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edubridge/edubridge-api/internal/models"
)

// ParentRepository manages persistence for parent records and child links.
type ParentRepository struct {
	db *sqlx.DB
}

// NewParentRepository constructs a ParentRepository.
func NewParentRepository(db *sqlx.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

const parentColumns = "id, user_id, full_name, email, phone, active, created_at, updated_at"

// List returns parents matching the provided filters.
func (r *ParentRepository) List(ctx context.Context, filter models.ParentFilter) ([]models.Parent, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM parents WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		parentColumns, where, size, (page-1)*size)

	var parents []models.Parent
	if err := r.db.SelectContext(ctx, &parents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list parents: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM parents WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count parents: %w", err)
	}
	return parents, total, nil
}

// FindByID fetches a parent with linked children.
func (r *ParentRepository) FindByID(ctx context.Context, id string) (*models.ParentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM parents WHERE id = $1", parentColumns)
	var parent models.Parent
	if err := r.db.GetContext(ctx, &parent, query, id); err != nil {
		return nil, err
	}
	children, err := r.childrenFor(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	return &models.ParentDetail{Parent: parent, Children: children}, nil
}

// FindByUserID fetches the parent profile linked to a user account.
func (r *ParentRepository) FindByUserID(ctx context.Context, userID string) (*models.ParentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM parents WHERE user_id = $1 LIMIT 1", parentColumns)
	var parent models.Parent
	if err := r.db.GetContext(ctx, &parent, query, userID); err != nil {
		return nil, err
	}
	children, err := r.childrenFor(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	return &models.ParentDetail{Parent: parent, Children: children}, nil
}

// ParentsOfStudent returns parent records linked to a student.
func (r *ParentRepository) ParentsOfStudent(ctx context.Context, studentID string) ([]models.Parent, error) {
	query := fmt.Sprintf(`SELECT %s FROM parents p
        JOIN parent_children pc ON pc.parent_id = p.id
        WHERE pc.student_id = $1 AND p.active = TRUE`, prefixColumns("p", parentColumns))
	var parents []models.Parent
	if err := r.db.SelectContext(ctx, &parents, query, studentID); err != nil {
		return nil, fmt.Errorf("parents of student: %w", err)
	}
	return parents, nil
}

func (r *ParentRepository) childrenFor(ctx context.Context, parentID string) ([]string, error) {
	const query = `SELECT student_id FROM parent_children WHERE parent_id = $1`
	var children []string
	if err := r.db.SelectContext(ctx, &children, query, parentID); err != nil {
		return nil, fmt.Errorf("list parent children: %w", err)
	}
	return children, nil
}

// Create inserts a new parent record.
func (r *ParentRepository) Create(ctx context.Context, parent *models.Parent) error {
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if parent.CreatedAt.IsZero() {
		parent.CreatedAt = now
	}
	parent.UpdatedAt = now
	const query = `INSERT INTO parents (id, user_id, full_name, email, phone, active, created_at, updated_at)
        VALUES (:id, :user_id, :full_name, :email, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, parent); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	return nil
}

// Update modifies an existing parent.
func (r *ParentRepository) Update(ctx context.Context, parent *models.Parent) error {
	parent.UpdatedAt = time.Now().UTC()
	const query = `UPDATE parents SET full_name = :full_name, email = :email, phone = :phone,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, parent); err != nil {
		return fmt.Errorf("update parent: %w", err)
	}
	return nil
}

// ReplaceChildren rewrites the parent's child links atomically.
func (r *ParentRepository) ReplaceChildren(ctx context.Context, parentID string, studentIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace children: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM parent_children WHERE parent_id = $1`, parentID); err != nil {
		return fmt.Errorf("clear parent children: %w", err)
	}
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parent_children (parent_id, student_id) VALUES ($1, $2)`,
			parentID, studentID); err != nil {
			return fmt.Errorf("insert parent child: %w", err)
		}
	}
	return tx.Commit()
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + "." + p
	}
	return strings.Join(parts, ", ")
}
