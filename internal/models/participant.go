package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ParticipantRole is the closed set of role categories a participant can hold.
type ParticipantRole string

// Possible participant roles.
const (
	RoleLearner   ParticipantRole = "LEARNER"
	RoleCoach     ParticipantRole = "COACH"
	RoleAssistant ParticipantRole = "ASSISTANT"
)

// ParticipantStatus represents the enrollment lifecycle in the system of record.
type ParticipantStatus string

// Possible participant statuses.
const (
	StatusEnrolled  ParticipantStatus = "ENROLLED"
	StatusDropped   ParticipantStatus = "DROPPED"
	StatusCompleted ParticipantStatus = "COMPLETED"
)

// CaseloadAssignment pairs a learner with an assistant responsible for them.
type CaseloadAssignment struct {
	AssistantName string `json:"assistant_name"`
	AssistantID   string `json:"assistant_id"`
}

// CaseloadList is a JSONB-persisted list of caseload assignments.
type CaseloadList []CaseloadAssignment

// Value implements driver.Valuer.
func (l CaseloadList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CaseloadList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported caseload list type %T", src)
	}
	return json.Unmarshal(raw, l)
}

// ParticipantSnapshot is the locally persisted copy of a participant's
// sync-relevant attributes as of the last successful sync. It is replaced
// wholesale on every successful sync and never deleted, so that a dropped
// participant who re-enrolls is diffed against their last known state.
type ParticipantSnapshot struct {
	ParticipantID     string            `db:"participant_id" json:"participant_id"`
	ProgramID         string            `db:"program_id" json:"program_id"`
	FullName          string            `db:"full_name" json:"full_name"`
	Email             string            `db:"email" json:"email"`
	CRMContactID      int64             `db:"crm_contact_id" json:"crm_contact_id"`
	RemoteUserID      int64             `db:"remote_user_id" json:"remote_user_id"`
	Role              ParticipantRole   `db:"role" json:"role"`
	Status            ParticipantStatus `db:"status" json:"status"`
	ScheduleGroupID   string            `db:"schedule_group_id" json:"schedule_group_id"`
	ScheduleGroupName string            `db:"schedule_group_name" json:"schedule_group_name"`
	CohortGroupID     *string           `db:"cohort_group_id" json:"cohort_group_id,omitempty"`
	CohortGroupName   *string           `db:"cohort_group_name" json:"cohort_group_name,omitempty"`
	Caseloads         CaseloadList      `db:"caseloads" json:"caseloads"`
	SyncedAt          time.Time         `db:"synced_at" json:"synced_at"`
}
