package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, is_active, enrolled_by, enrollment_type, notes, passing_score, final_score, is_approved, completed_at, created_at, updated_at`

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveByStudent returns the student's active enrollments.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND is_active = TRUE ORDER BY created_at ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns every enrollment of the student, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 ORDER BY created_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsActive checks if an active enrollment exists for the student and course.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND is_active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment. The partial unique index on active
// (student_id, course_id) turns a lost race into ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = enrollment.CreatedAt
	if enrollment.EnrollmentType == "" {
		enrollment.EnrollmentType = models.EnrollmentTypeManual
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, is_active, enrolled_by, enrollment_type, notes, passing_score, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :is_active, :enrolled_by, :enrollment_type, :notes, :passing_score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create enrollment: %w", ErrDuplicate)
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// RecordCompletion stores the final score. Approved enrollments are closed and
// released from the student's active slot.
func (r *EnrollmentRepository) RecordCompletion(ctx context.Context, id string, score float64, approved bool, at time.Time) error {
	const query = `UPDATE enrollments
SET final_score = $2,
    is_approved = $3,
    completed_at = CASE WHEN $3 THEN $4 ELSE completed_at END,
    is_active = CASE WHEN $3 THEN FALSE ELSE is_active END,
    updated_at = $4
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, score, approved, at)
	if err != nil {
		return fmt.Errorf("record enrollment completion: %w", err)
	}
	return requireAffected(res, "record enrollment completion")
}

// Deactivate flips is_active to false without deleting the row.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE enrollments SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	return requireAffected(res, "deactivate enrollment")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
