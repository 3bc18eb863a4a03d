package models

import "time"

// ContentProgress is the single row per (student, content) pair.
type ContentProgress struct {
	StudentID string    `db:"student_id" json:"student_id"`
	ContentID string    `db:"content_id" json:"content_id"`
	Completed bool      `db:"completed" json:"completed"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
