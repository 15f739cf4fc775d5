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

// GroupRepository handles persistence of section-like groups. Uniqueness per
// (course_id, external_grouping_id) is enforced by a database constraint, not
// application logic, so concurrent creators cannot both win.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByExternalGrouping returns the group for a (course, external grouping)
// pair, or nil when none exists.
func (r *GroupRepository) FindByExternalGrouping(ctx context.Context, courseID, externalGroupingID string) (*models.Group, error) {
	const query = `SELECT id, course_id, name, kind, external_grouping_id, remote_group_id, created_at
        FROM groups WHERE course_id = $1 AND external_grouping_id = $2`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, courseID, externalGroupingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}

// ListFixedByKind returns the system-generated groups of a kind that carry no
// external grouping id. The caller treats more than one row as a fatal
// configuration error.
func (r *GroupRepository) ListFixedByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error) {
	const query = `SELECT id, course_id, name, kind, external_grouping_id, remote_group_id, created_at
        FROM groups WHERE course_id = $1 AND kind = $2 AND external_grouping_id IS NULL`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, courseID, kind); err != nil {
		return nil, fmt.Errorf("list fixed groups: %w", err)
	}
	return groups, nil
}

// ListByKind returns all groups of a kind within a course.
func (r *GroupRepository) ListByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error) {
	const query = `SELECT id, course_id, name, kind, external_grouping_id, remote_group_id, created_at
        FROM groups WHERE course_id = $1 AND kind = $2`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, courseID, kind); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Insert creates a group row, relying on ON CONFLICT DO NOTHING to close the
// race window between concurrent syncs. It reports whether this call created
// the row.
func (r *GroupRepository) Insert(ctx context.Context, group *models.Group) (bool, error) {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO groups (id, course_id, name, kind, external_grouping_id, remote_group_id, created_at)
        VALUES (:id, :course_id, :name, :kind, :external_grouping_id, :remote_group_id, :created_at)
        ON CONFLICT DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, group)
	if err != nil {
		return false, fmt.Errorf("insert group: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert group result: %w", err)
	}
	return inserted == 1, nil
}

// UpdateRemoteID stores the id assigned by the remote LMS after creation.
func (r *GroupRepository) UpdateRemoteID(ctx context.Context, id string, remoteGroupID int64) error {
	const query = `UPDATE groups SET remote_group_id = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, remoteGroupID); err != nil {
		return fmt.Errorf("update group remote id: %w", err)
	}
	return nil
}

// Delete removes a group row. Used as compensating rollback when the remote
// counterpart could not be created.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM groups WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// FindByID returns a group by its primary key.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, course_id, name, kind, external_grouping_id, remote_group_id, created_at
        FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, fmt.Errorf("find group by id: %w", err)
	}
	return &group, nil
}
