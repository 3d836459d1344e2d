// Package access implements the role/resource authorization policy. Rules
// are pure lookups over the current teacher/student/parent relations; the
// policy never mutates any record it consults.
package access

import (
	"context"

	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

// Actor is the authenticated principal on whose behalf a check runs.
type Actor struct {
	ID   string
	Role models.UserRole
}

// ProfileStore resolves role-specific profiles for an actor.
type ProfileStore interface {
	TeacherByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error)
	ParentByUserID(ctx context.Context, userID string) (*models.ParentDetail, error)
	StudentByID(ctx context.Context, id string) (*models.Student, error)
}

// ResourceStore resolves a resource to its owning student.
type ResourceStore interface {
	StudentIDForGrade(ctx context.Context, gradeID string) (string, error)
	StudentIDForAttendance(ctx context.Context, attendanceID string) (string, error)
	StudentIDForFee(ctx context.Context, feeID string) (string, error)
}

type ruleFunc func(ctx context.Context, actor Actor, resourceID string) error

// Policy decides whether an actor may touch a resource. Adding a resource
// type is a table entry, not a new branch.
type Policy struct {
	profiles  ProfileStore
	resources ResourceStore
	logger    *zap.Logger
	rules     map[models.ResourceType]ruleFunc
}

// NewPolicy constructs the policy with its rule table.
func NewPolicy(profiles ProfileStore, resources ResourceStore, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Policy{profiles: profiles, resources: resources, logger: logger}
	p.rules = map[models.ResourceType]ruleFunc{
		models.ResourceStudent:    p.studentRule,
		models.ResourceTeacher:    p.teacherRule,
		models.ResourceGrade:      p.gradeRule,
		models.ResourceAttendance: p.attendanceRule,
		models.ResourceFee:        p.feeRule,
	}
	return p
}

// Authorize returns nil when the actor may access the resource, or a typed
// denial otherwise. Admins bypass every ownership rule.
func (p *Policy) Authorize(ctx context.Context, actor Actor, resourceType models.ResourceType, resourceID string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}

	rule, ok := p.rules[resourceType]
	if !ok {
		return appErrors.DeniedBy(appErrors.ErrInvalidResourceType, string(resourceType))
	}

	if err := rule(ctx, actor, resourceID); err != nil {
		p.logger.Debug("access denied",
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.String("resource_type", string(resourceType)),
			zap.String("resource_id", resourceID),
		)
		return err
	}
	return nil
}

func (p *Policy) studentRule(ctx context.Context, actor Actor, resourceID string) error {
	return p.checkStudentOwnership(ctx, actor, resourceID, "student")
}

func (p *Policy) teacherRule(_ context.Context, actor Actor, resourceID string) error {
	if actor.Role == models.RoleTeacher && resourceID == actor.ID {
		return nil
	}
	return appErrors.AccessDenied("teacher.self")
}

func (p *Policy) gradeRule(ctx context.Context, actor Actor, resourceID string) error {
	studentID, err := p.resources.StudentIDForGrade(ctx, resourceID)
	if err != nil {
		return appErrors.DeniedBy(appErrors.ErrResourceNotFound, "grade")
	}
	return p.checkStudentOwnership(ctx, actor, studentID, "grade")
}

// attendanceRule currently admits any authenticated role.
// TODO: route attendance through checkStudentOwnership the way gradeRule does.
func (p *Policy) attendanceRule(_ context.Context, _ Actor, _ string) error {
	return nil
}

func (p *Policy) feeRule(ctx context.Context, actor Actor, resourceID string) error {
	studentID, err := p.resources.StudentIDForFee(ctx, resourceID)
	if err != nil {
		return appErrors.DeniedBy(appErrors.ErrResourceNotFound, "fee")
	}
	return p.checkStudentOwnership(ctx, actor, studentID, "fee")
}

// checkStudentOwnership applies the role-specific ownership relation
// against a student. An empty ownership set always denies.
func (p *Policy) checkStudentOwnership(ctx context.Context, actor Actor, studentID, rule string) error {
	switch actor.Role {
	case models.RoleTeacher:
		teacher, err := p.profiles.TeacherByUserID(ctx, actor.ID)
		if err != nil {
			return appErrors.DeniedBy(appErrors.ErrProfileNotFound, rule+".teacher")
		}
		student, err := p.profiles.StudentByID(ctx, studentID)
		if err != nil {
			return appErrors.DeniedBy(appErrors.ErrResourceNotFound, rule+".teacher")
		}
		if !teacher.TeachesClass(student.Class, student.Section) {
			return appErrors.AccessDenied(rule + ".teacher")
		}
		return nil

	case models.RoleStudent:
		if studentID != actor.ID {
			return appErrors.AccessDenied(rule + ".self")
		}
		return nil

	case models.RoleParent:
		parent, err := p.profiles.ParentByUserID(ctx, actor.ID)
		if err != nil {
			return appErrors.DeniedBy(appErrors.ErrProfileNotFound, rule+".parent")
		}
		if !parent.HasChild(studentID) {
			return appErrors.AccessDenied(rule + ".parent")
		}
		return nil

	default:
		return appErrors.AccessDenied(rule + ".role")
	}
}
