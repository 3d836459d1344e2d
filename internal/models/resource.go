package models

// ResourceType identifies the kind of entity targeted by an access check.
type ResourceType string

const (
	ResourceStudent    ResourceType = "STUDENT"
	ResourceTeacher    ResourceType = "TEACHER"
	ResourceGrade      ResourceType = "GRADE"
	ResourceAttendance ResourceType = "ATTENDANCE"
	ResourceFee        ResourceType = "FEE"
)
