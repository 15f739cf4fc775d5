package models

import "time"

// Assignment is the local record of a user's membership in a group with a
// role. A participant holds at most one primary (Learner/Coach/Assistant)
// assignment per course at any time; the rebuild strategy clears duplicates
// defensively if that invariant is ever violated.
type Assignment struct {
	ID                 string          `db:"id" json:"id"`
	CourseID           string          `db:"course_id" json:"course_id"`
	UserID             string          `db:"user_id" json:"user_id"`
	GroupID            string          `db:"group_id" json:"group_id"`
	Role               ParticipantRole `db:"role" json:"role"`
	RemoteEnrollmentID *int64          `db:"remote_enrollment_id" json:"remote_enrollment_id,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}
