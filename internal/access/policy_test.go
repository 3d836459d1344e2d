package access

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type fakeProfiles struct {
	teachers map[string]*models.TeacherDetail
	parents  map[string]*models.ParentDetail
	students map[string]*models.Student
}

func (f *fakeProfiles) TeacherByUserID(_ context.Context, userID string) (*models.TeacherDetail, error) {
	if t, ok := f.teachers[userID]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProfiles) ParentByUserID(_ context.Context, userID string) (*models.ParentDetail, error) {
	if p, ok := f.parents[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProfiles) StudentByID(_ context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeResources struct {
	gradeOwners map[string]string
	feeOwners   map[string]string
}

func (f *fakeResources) StudentIDForGrade(_ context.Context, id string) (string, error) {
	if s, ok := f.gradeOwners[id]; ok {
		return s, nil
	}
	return "", sql.ErrNoRows
}

func (f *fakeResources) StudentIDForAttendance(_ context.Context, id string) (string, error) {
	return "", sql.ErrNoRows
}

func (f *fakeResources) StudentIDForFee(_ context.Context, id string) (string, error) {
	if s, ok := f.feeOwners[id]; ok {
		return s, nil
	}
	return "", sql.ErrNoRows
}

func newTestPolicy() *Policy {
	profiles := &fakeProfiles{
		teachers: map[string]*models.TeacherDetail{
			"t1": {Teacher: models.Teacher{ID: "t1"}, Classes: []models.ClassSection{{Class: "10", Section: "A"}}},
			"t2": {Teacher: models.Teacher{ID: "t2"}},
		},
		parents: map[string]*models.ParentDetail{
			"p1": {Parent: models.Parent{ID: "p1"}, Children: []string{"s1", "s2"}},
			"p2": {Parent: models.Parent{ID: "p2"}},
		},
		students: map[string]*models.Student{
			"s1": {ID: "s1", Class: "10", Section: "A"},
			"s2": {ID: "s2", Class: "11", Section: "B"},
		},
	}
	resources := &fakeResources{
		gradeOwners: map[string]string{"g1": "s1", "g2": "s2"},
		feeOwners:   map[string]string{"f1": "s1"},
	}
	return NewPolicy(profiles, resources, zap.NewNop())
}

func TestAuthorizeAdminBypassesEverything(t *testing.T) {
	policy := newTestPolicy()
	admin := Actor{ID: "admin1", Role: models.RoleAdmin}

	for _, rt := range []models.ResourceType{
		models.ResourceStudent, models.ResourceTeacher, models.ResourceGrade,
		models.ResourceAttendance, models.ResourceFee, models.ResourceType("BOGUS"),
	} {
		assert.NoError(t, policy.Authorize(context.Background(), admin, rt, "anything"), string(rt))
	}
}

func TestAuthorizeStudentResource(t *testing.T) {
	policy := newTestPolicy()
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   Actor
		target  string
		allowed bool
		code    string
	}{
		{"teacher with matching class", Actor{"t1", models.RoleTeacher}, "s1", true, ""},
		{"teacher without matching class", Actor{"t1", models.RoleTeacher}, "s2", false, "ACCESS_DENIED"},
		{"teacher with zero classes", Actor{"t2", models.RoleTeacher}, "s1", false, "ACCESS_DENIED"},
		{"teacher with no profile", Actor{"t9", models.RoleTeacher}, "s1", false, "PROFILE_NOT_FOUND"},
		{"teacher against missing student", Actor{"t1", models.RoleTeacher}, "s9", false, "RESOURCE_NOT_FOUND"},
		{"student self", Actor{"s1", models.RoleStudent}, "s1", true, ""},
		{"student other", Actor{"s1", models.RoleStudent}, "s2", false, "ACCESS_DENIED"},
		{"parent of child", Actor{"p1", models.RoleParent}, "s1", true, ""},
		{"parent of other child", Actor{"p1", models.RoleParent}, "s2", true, ""},
		{"parent with empty children", Actor{"p2", models.RoleParent}, "s1", false, "ACCESS_DENIED"},
		{"parent with no profile", Actor{"p9", models.RoleParent}, "s1", false, "PROFILE_NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Authorize(ctx, tc.actor, models.ResourceStudent, tc.target)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.NotEmpty(t, appErr.Rule)
		})
	}
}

func TestAuthorizeTeacherResource(t *testing.T) {
	policy := newTestPolicy()
	ctx := context.Background()

	assert.NoError(t, policy.Authorize(ctx, Actor{"t1", models.RoleTeacher}, models.ResourceTeacher, "t1"))
	assert.Error(t, policy.Authorize(ctx, Actor{"t1", models.RoleTeacher}, models.ResourceTeacher, "t2"))
	assert.Error(t, policy.Authorize(ctx, Actor{"s1", models.RoleStudent}, models.ResourceTeacher, "t1"))
	assert.Error(t, policy.Authorize(ctx, Actor{"p1", models.RoleParent}, models.ResourceTeacher, "t1"))
}

func TestAuthorizeGradeTraversesToStudent(t *testing.T) {
	policy := newTestPolicy()
	ctx := context.Background()

	// g1 belongs to s1 (class 10A), g2 to s2 (class 11B)
	assert.NoError(t, policy.Authorize(ctx, Actor{"t1", models.RoleTeacher}, models.ResourceGrade, "g1"))
	assert.Error(t, policy.Authorize(ctx, Actor{"t1", models.RoleTeacher}, models.ResourceGrade, "g2"))
	assert.NoError(t, policy.Authorize(ctx, Actor{"s1", models.RoleStudent}, models.ResourceGrade, "g1"))
	assert.Error(t, policy.Authorize(ctx, Actor{"s2", models.RoleStudent}, models.ResourceGrade, "g1"))
	assert.NoError(t, policy.Authorize(ctx, Actor{"p1", models.RoleParent}, models.ResourceGrade, "g2"))

	err := policy.Authorize(ctx, Actor{"s1", models.RoleStudent}, models.ResourceGrade, "g9")
	require.Error(t, err)
	assert.Equal(t, "RESOURCE_NOT_FOUND", appErrors.FromError(err).Code)
}

func TestAuthorizeFeeTraversesToStudent(t *testing.T) {
	policy := newTestPolicy()
	ctx := context.Background()

	assert.NoError(t, policy.Authorize(ctx, Actor{"p1", models.RoleParent}, models.ResourceFee, "f1"))
	assert.Error(t, policy.Authorize(ctx, Actor{"p2", models.RoleParent}, models.ResourceFee, "f1"))
	assert.Error(t, policy.Authorize(ctx, Actor{"s2", models.RoleStudent}, models.ResourceFee, "f1"))
}

func TestAuthorizeAttendancePassThrough(t *testing.T) {
	policy := newTestPolicy()
	ctx := context.Background()

	// Placeholder rule: any authenticated role passes for now.
	assert.NoError(t, policy.Authorize(ctx, Actor{"s2", models.RoleStudent}, models.ResourceAttendance, "a1"))
	assert.NoError(t, policy.Authorize(ctx, Actor{"p2", models.RoleParent}, models.ResourceAttendance, "a1"))
}

func TestAuthorizeUnknownResourceType(t *testing.T) {
	policy := newTestPolicy()

	err := policy.Authorize(context.Background(), Actor{"s1", models.RoleStudent}, models.ResourceType("CAFETERIA"), "x")
	require.Error(t, err)
	assert.Equal(t, "INVALID_RESOURCE_TYPE", appErrors.FromError(err).Code)
}

func TestAuthorizeUnknownRoleDenies(t *testing.T) {
	policy := newTestPolicy()

	err := policy.Authorize(context.Background(), Actor{"x1", models.UserRole("JANITOR")}, models.ResourceStudent, "s1")
	require.Error(t, err)
	assert.Equal(t, "ACCESS_DENIED", appErrors.FromError(err).Code)
}
