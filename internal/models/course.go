package models

import "time"

// Course maps an external program to its local and remote course records.
// A missing course for a program is a configuration error that aborts the
// entire program sync before any participant is touched.
type Course struct {
	ID             string    `db:"id" json:"id"`
	ProgramID      string    `db:"program_id" json:"program_id"`
	Name           string    `db:"name" json:"name"`
	RemoteCourseID int64     `db:"remote_course_id" json:"remote_course_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
