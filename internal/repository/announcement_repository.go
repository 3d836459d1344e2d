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

// AnnouncementRepository manages persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs an AnnouncementRepository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

const announcementColumns = "id, title, content, audience, target_class, target_section, priority, published_at, expires_at, created_by, created_at, updated_at"

// List returns live announcements, newest first. Expired rows are filtered
// out the same way expired notifications are.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	conditions := []string{"(expires_at IS NULL OR expires_at > $1)"}
	args := []interface{}{time.Now().UTC()}

	if filter.Audience != nil {
		conditions = append(conditions, fmt.Sprintf("audience = $%d", len(args)+1))
		args = append(args, string(*filter.Audience))
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM announcements WHERE %s ORDER BY published_at DESC LIMIT %d OFFSET %d",
		announcementColumns, where, size, (page-1)*size)

	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM announcements WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// FindByID fetches an announcement by ID.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf("SELECT %s FROM announcements WHERE id = $1", announcementColumns)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	if announcement.PublishedAt.IsZero() {
		announcement.PublishedAt = now
	}
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, title, content, audience, target_class, target_section,
        priority, published_at, expires_at, created_by, created_at, updated_at)
        VALUES (:id, :title, :content, :audience, :target_class, :target_section,
        :priority, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// RecipientsForAudience resolves the user IDs an announcement should fan out
// to. CLASS audiences resolve to the students of the target class/section.
func (r *AnnouncementRepository) RecipientsForAudience(ctx context.Context, announcement *models.Announcement) ([]string, error) {
	var query string
	var args []interface{}

	switch announcement.Audience {
	case models.AudienceAll:
		query = `SELECT id FROM users WHERE active = TRUE`
	case models.AudienceTeachers:
		query = `SELECT id FROM users WHERE active = TRUE AND role = $1`
		args = append(args, string(models.RoleTeacher))
	case models.AudienceStudents:
		query = `SELECT id FROM users WHERE active = TRUE AND role = $1`
		args = append(args, string(models.RoleStudent))
	case models.AudienceParents:
		query = `SELECT id FROM users WHERE active = TRUE AND role = $1`
		args = append(args, string(models.RoleParent))
	case models.AudienceClass:
		if announcement.TargetClass == nil {
			return nil, fmt.Errorf("class announcement %s has no target class", announcement.ID)
		}
		query = `SELECT u.id FROM users u JOIN students s ON s.user_id = u.id
            WHERE u.active = TRUE AND s.class = $1`
		args = append(args, *announcement.TargetClass)
		if announcement.TargetSection != nil {
			query += ` AND s.section = $2`
			args = append(args, *announcement.TargetSection)
		}
	default:
		return nil, fmt.Errorf("unknown audience %q", announcement.Audience)
	}

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, args...); err != nil {
		return nil, fmt.Errorf("resolve announcement recipients: %w", err)
	}
	return userIDs, nil
}
