package models

import "time"

// User is the local mirror of a person tracked by the system of record.
type User struct {
	ID            string    `db:"id" json:"id"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	CRMContactID  int64     `db:"crm_contact_id" json:"crm_contact_id"`
	RemoteUserID  int64     `db:"remote_user_id" json:"remote_user_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
