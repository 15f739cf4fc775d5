package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduops/cohort-sync-api/internal/models"
)

// UserRepository handles persistence of local user mirrors.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByParticipantID returns the local user for an external participant id,
// or nil when none exists yet.
func (r *UserRepository) FindByParticipantID(ctx context.Context, participantID string) (*models.User, error) {
	const query = `SELECT id, participant_id, full_name, email, crm_contact_id, remote_user_id, created_at, updated_at
        FROM users WHERE participant_id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, participantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// ExistsByParticipantID reports whether a local user record exists.
func (r *UserRepository) ExistsByParticipantID(ctx context.Context, participantID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE participant_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, participantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return true, nil
}

// Upsert creates or refreshes the local user mirror keyed by participant id.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, participant_id, full_name, email, crm_contact_id, remote_user_id, created_at, updated_at)
        VALUES (:id, :participant_id, :full_name, :email, :crm_contact_id, :remote_user_id, :created_at, :updated_at)
        ON CONFLICT (participant_id) DO UPDATE SET
        full_name = EXCLUDED.full_name, email = EXCLUDED.email,
        crm_contact_id = EXCLUDED.crm_contact_id, remote_user_id = EXCLUDED.remote_user_id,
        updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
