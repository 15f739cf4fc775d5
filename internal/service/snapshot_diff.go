package service

import (
	"github.com/eduops/cohort-sync-api/internal/models"
)

// Diff compares a participant's last persisted snapshot against the freshly
// fetched one. It is ephemeral and never persisted. A nil previous snapshot
// means the participant has never synced successfully, so every predicate
// reports a change.
type Diff struct {
	Previous *models.ParticipantSnapshot
	Current  models.ParticipantSnapshot

	localUserExists bool
}

// ComputeDiff builds a Diff. current is never absent; a failed roster fetch
// is an error upstream, not a representable diff.
func ComputeDiff(previous *models.ParticipantSnapshot, current models.ParticipantSnapshot, localUserExists bool) Diff {
	return Diff{Previous: previous, Current: current, localUserExists: localUserExists}
}

// ShouldSync reports whether the participant is ready to be synced at all.
// Learners and coaches need a schedule group before their first sync; until
// the manual scheduling step happens upstream, the participant is skipped
// without any writes. Once a local user exists the gate stays open even if
// the schedule group is later cleared.
func (d Diff) ShouldSync() bool {
	role := d.Current.Role
	if role != models.RoleLearner && role != models.RoleCoach {
		return true
	}
	if d.Current.ScheduleGroupID != "" {
		return true
	}
	return d.localUserExists
}

// Changed reports whether anything sync-relevant differs. It is always false
// when ShouldSync is false: persisting a snapshot for a skipped participant
// would mask the real change on a later run.
func (d Diff) Changed() bool {
	if !d.ShouldSync() {
		return false
	}
	return d.ContactChanged() || d.PrimaryEnrollmentChanged() || d.CaseloadChanged() || d.ConferencingChanged()
}

// ContactChanged reports a change in identity or cross-system identifiers.
func (d Diff) ContactChanged() bool {
	if d.Previous == nil {
		return true
	}
	return d.Previous.FullName != d.Current.FullName ||
		d.Previous.Email != d.Current.Email ||
		d.Previous.CRMContactID != d.Current.CRMContactID ||
		d.Previous.RemoteUserID != d.Current.RemoteUserID
}

// PrimaryEnrollmentChanged reports a change in anything that determines the
// participant's single primary group assignment, including renames of
// generated group names.
func (d Diff) PrimaryEnrollmentChanged() bool {
	if d.Previous == nil {
		return true
	}
	return d.Previous.Role != d.Current.Role ||
		d.Previous.Status != d.Current.Status ||
		d.Previous.ScheduleGroupID != d.Current.ScheduleGroupID ||
		d.Previous.ScheduleGroupName != d.Current.ScheduleGroupName ||
		!equalStringPtr(d.Previous.CohortGroupID, d.Current.CohortGroupID) ||
		!equalStringPtr(d.Previous.CohortGroupName, d.Current.CohortGroupName)
}

// CaseloadChanged reports a change in the set of caseload assignments,
// ignoring order.
func (d Diff) CaseloadChanged() bool {
	if d.Previous == nil {
		return true
	}
	return !equalCaseloadSet(d.Previous.Caseloads, d.Current.Caseloads)
}

// ConferencingChanged reports a change in the fields forwarded to the
// video-conferencing provider.
func (d Diff) ConferencingChanged() bool {
	if d.Previous == nil {
		return true
	}
	return d.Previous.FullName != d.Current.FullName ||
		d.Previous.Email != d.Current.Email
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalCaseloadSet(a, b models.CaseloadList) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[models.CaseloadAssignment]int, len(a))
	for _, assignment := range a {
		set[assignment]++
	}
	for _, assignment := range b {
		set[assignment]--
		if set[assignment] < 0 {
			return false
		}
	}
	return true
}
