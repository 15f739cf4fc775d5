package models

// FailedParticipant records one participant whose reconciliation failed
// during a program sync, with enough context for an operator to act on.
type FailedParticipant struct {
	ParticipantID string `json:"participant_id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Reason        string `json:"reason"`
}

// SyncResult summarises one program sync run.
type SyncResult struct {
	ProgramID string              `json:"program_id"`
	Processed int                 `json:"processed"`
	Skipped   int                 `json:"skipped"`
	Synced    int                 `json:"synced"`
	Failed    int                 `json:"failed"`
	Failures  []FailedParticipant `json:"failures,omitempty"`
}
