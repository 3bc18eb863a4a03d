package models

import "time"

// Course groups an ordered list of modules.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	PassingScore float64   `db:"passing_score" json:"passing_score"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Module is one step of a course. OrderIndex is unique and contiguous per course;
// the module at index 0 has no predecessor.
type Module struct {
	ID         string  `db:"id" json:"id"`
	CourseID   string  `db:"course_id" json:"course_id"`
	Title      string  `db:"title" json:"title"`
	OrderIndex int     `db:"order_index" json:"order_index"`
	ExamID     *string `db:"exam_id" json:"exam_id,omitempty"`
}

// HasExam reports whether an exam is linked to the module.
func (m Module) HasExam() bool {
	return m.ExamID != nil && *m.ExamID != ""
}

// Content is a lesson item belonging to exactly one module.
type Content struct {
	ID         string `db:"id" json:"id"`
	ModuleID   string `db:"module_id" json:"module_id"`
	Title      string `db:"title" json:"title"`
	IsRequired bool   `db:"is_required" json:"is_required"`
	OrderIndex int    `db:"order_index" json:"order_index"`
}
