package models

import "time"

// GroupKind classifies the section-like containers a participant can belong to.
type GroupKind string

// Possible group kinds.
const (
	GroupKindSchedule   GroupKind = "SCHEDULE"
	GroupKindCohort     GroupKind = "COHORT"
	GroupKindCaseload   GroupKind = "CASELOAD"
	GroupKindAssistants GroupKind = "ASSISTANTS"
)

// Group mirrors a remote LMS section scoped to one course. At most one group
// exists per (course, external grouping id); the uniqueness is enforced by the
// storage layer so concurrent find-or-create calls cannot race.
type Group struct {
	ID                 string    `db:"id" json:"id"`
	CourseID           string    `db:"course_id" json:"course_id"`
	Name               string    `db:"name" json:"name"`
	Kind               GroupKind `db:"kind" json:"kind"`
	ExternalGroupingID *string   `db:"external_grouping_id" json:"external_grouping_id,omitempty"`
	RemoteGroupID      *int64    `db:"remote_group_id" json:"remote_group_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
