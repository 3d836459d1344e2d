package models

import "time"

// NotificationType categorises what a notification is about.
type NotificationType string

const (
	NotificationGrade        NotificationType = "GRADE"
	NotificationAttendance   NotificationType = "ATTENDANCE"
	NotificationAssignment   NotificationType = "ASSIGNMENT"
	NotificationFee          NotificationType = "FEE"
	NotificationMessage      NotificationType = "MESSAGE"
	NotificationAnnouncement NotificationType = "ANNOUNCEMENT"
	NotificationEvent        NotificationType = "EVENT"
	NotificationExam         NotificationType = "EXAM"
	NotificationHomework     NotificationType = "HOMEWORK"
	NotificationGeneral      NotificationType = "GENERAL"
)

// ValidNotificationType reports whether t is a known notification type.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationGrade, NotificationAttendance, NotificationAssignment,
		NotificationFee, NotificationMessage, NotificationAnnouncement,
		NotificationEvent, NotificationExam, NotificationHomework, NotificationGeneral:
		return true
	default:
		return false
	}
}

// NotificationPriority orders notifications by urgency.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityMedium NotificationPriority = "MEDIUM"
	PriorityHigh   NotificationPriority = "HIGH"
)

// Notification is a persisted per-recipient notification record. It is the
// durable channel of the dispatcher; push and email are best-effort copies.
type Notification struct {
	ID           string               `db:"id" json:"id"`
	UserID       string               `db:"user_id" json:"user_id"`
	Title        string               `db:"title" json:"title"`
	Message      string               `db:"message" json:"message"`
	Type         NotificationType     `db:"type" json:"type"`
	Priority     NotificationPriority `db:"priority" json:"priority"`
	RelatedModel *string              `db:"related_model" json:"related_model,omitempty"`
	RelatedID    *string              `db:"related_id" json:"related_id,omitempty"`
	Read         bool                 `db:"read" json:"read"`
	ReadAt       *time.Time           `db:"read_at" json:"read_at,omitempty"`
	ExpiresAt    *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter captures filtering options for listing notifications.
type NotificationFilter struct {
	UserID   string
	Unread   *bool
	Type     *NotificationType
	Page     int
	PageSize int
}
