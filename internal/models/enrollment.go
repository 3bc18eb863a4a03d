package models

import "time"

// EnrollmentType records how an enrollment was created.
type EnrollmentType string

// Possible enrollment types.
const (
	EnrollmentTypeManual EnrollmentType = "manual"
	EnrollmentTypeBulk   EnrollmentType = "bulk"
)

// DefaultPassingScore is the platform-wide passing threshold in percent.
const DefaultPassingScore = 70

// Enrollment captures a student's registration to a course. Rows are never
// deleted; deactivation flips IsActive.
type Enrollment struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	EnrolledBy     string         `db:"enrolled_by" json:"enrolled_by"`
	EnrollmentType EnrollmentType `db:"enrollment_type" json:"enrollment_type"`
	Notes          string         `db:"notes" json:"notes,omitempty"`
	PassingScore   float64        `db:"passing_score" json:"passing_score"`
	FinalScore     *float64       `db:"final_score" json:"final_score,omitempty"`
	IsApproved     *bool          `db:"is_approved" json:"is_approved,omitempty"`
	CompletedAt    *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Incomplete reports whether the enrollment still occupies the student's course slot.
func (e Enrollment) Incomplete() bool {
	return e.IsActive && e.CompletedAt == nil
}
