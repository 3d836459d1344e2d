package models

import "time"

// AnnouncementAudience defines who receives an announcement.
type AnnouncementAudience string

const (
	AudienceAll      AnnouncementAudience = "ALL"
	AudienceTeachers AnnouncementAudience = "TEACHERS"
	AudienceStudents AnnouncementAudience = "STUDENTS"
	AudienceParents  AnnouncementAudience = "PARENTS"
	AudienceClass    AnnouncementAudience = "CLASS"
)

// Announcement represents a persisted announcement row.
type Announcement struct {
	ID            string               `db:"id" json:"id"`
	Title         string               `db:"title" json:"title"`
	Content       string               `db:"content" json:"content"`
	Audience      AnnouncementAudience `db:"audience" json:"audience"`
	TargetClass   *string              `db:"target_class" json:"target_class,omitempty"`
	TargetSection *string              `db:"target_section" json:"target_section,omitempty"`
	Priority      NotificationPriority `db:"priority" json:"priority"`
	PublishedAt   time.Time            `db:"published_at" json:"published_at"`
	ExpiresAt     *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy     string               `db:"created_by" json:"created_by"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter allows listing announcements.
type AnnouncementFilter struct {
	Audience *AnnouncementAudience
	Page     int
	PageSize int
}
