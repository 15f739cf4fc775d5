package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduops/cohort-sync-api/internal/models"
)

// AssignmentRepository handles persistence of local group assignments.
// Caseload memberships live only in the remote LMS and have no rows here.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListByUserAndCourse returns every assignment a user holds in a course.
func (r *AssignmentRepository) ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Assignment, error) {
	const query = `SELECT id, course_id, user_id, group_id, role, remote_enrollment_id, created_at
        FROM assignments WHERE user_id = $1 AND course_id = $2`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, userID, courseID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Create persists a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (id, course_id, user_id, group_id, role, remote_enrollment_id, created_at)
        VALUES (:id, :course_id, :user_id, :group_id, :role, :remote_enrollment_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment row.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
