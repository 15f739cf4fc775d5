package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eduops/cohort-sync-api/internal/models"
)

// SnapshotRepository persists the last successfully synced state per participant.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Find returns the snapshot for a participant, or nil when the participant
// has never synced successfully.
func (r *SnapshotRepository) Find(ctx context.Context, participantID string) (*models.ParticipantSnapshot, error) {
	const query = `SELECT participant_id, program_id, full_name, email, crm_contact_id, remote_user_id,
        role, status, schedule_group_id, schedule_group_name, cohort_group_id, cohort_group_name,
        caseloads, synced_at FROM participant_snapshots WHERE participant_id = $1`
	var snapshot models.ParticipantSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, participantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return &snapshot, nil
}

// Upsert replaces the stored snapshot wholesale. Snapshots are never
// partially patched; the whole row is the baseline for the next diff.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *models.ParticipantSnapshot) error {
	if snapshot.SyncedAt.IsZero() {
		snapshot.SyncedAt = time.Now().UTC()
	}
	const query = `INSERT INTO participant_snapshots (participant_id, program_id, full_name, email,
        crm_contact_id, remote_user_id, role, status, schedule_group_id, schedule_group_name,
        cohort_group_id, cohort_group_name, caseloads, synced_at)
        VALUES (:participant_id, :program_id, :full_name, :email, :crm_contact_id, :remote_user_id,
        :role, :status, :schedule_group_id, :schedule_group_name, :cohort_group_id, :cohort_group_name,
        :caseloads, :synced_at)
        ON CONFLICT (participant_id) DO UPDATE SET
        program_id = EXCLUDED.program_id, full_name = EXCLUDED.full_name, email = EXCLUDED.email,
        crm_contact_id = EXCLUDED.crm_contact_id, remote_user_id = EXCLUDED.remote_user_id,
        role = EXCLUDED.role, status = EXCLUDED.status,
        schedule_group_id = EXCLUDED.schedule_group_id, schedule_group_name = EXCLUDED.schedule_group_name,
        cohort_group_id = EXCLUDED.cohort_group_id, cohort_group_name = EXCLUDED.cohort_group_name,
        caseloads = EXCLUDED.caseloads, synced_at = EXCLUDED.synced_at`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
