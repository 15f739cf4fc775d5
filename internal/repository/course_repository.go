package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eduops/cohort-sync-api/internal/models"
)

// CourseRepository handles persistence of program-to-course mappings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByProgramID returns the course configured for a program. sql.ErrNoRows
// propagates so the caller can treat a missing mapping as a setup error.
func (r *CourseRepository) FindByProgramID(ctx context.Context, programID string) (*models.Course, error) {
	const query = `SELECT id, program_id, name, remote_course_id, created_at FROM courses WHERE program_id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, programID); err != nil {
		return nil, fmt.Errorf("find course for program %s: %w", programID, err)
	}
	return &course, nil
}
