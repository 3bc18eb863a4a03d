package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

const submissionColumns = `id, exam_id, student_id, answers, score, passed, attempt_number, submitted_at`

// ExamRepository persists exams, their answer keys and submissions.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID returns an exam with its questions ordered by position.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const examQuery = `SELECT id, module_id, course_id, title, passing_score, created_at FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, examQuery, id); err != nil {
		return nil, err
	}
	const questionQuery = `SELECT id, exam_id, position, correct_choice FROM exam_questions WHERE exam_id = $1 ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &exam.Questions, questionQuery, id); err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	return &exam, nil
}

// ListByCourse returns exams linked to any of the course's modules plus exams
// tied directly to the course.
func (r *ExamRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Exam, error) {
	const query = `SELECT DISTINCT e.id, e.module_id, e.course_id, e.title, e.passing_score, e.created_at
FROM exams e
LEFT JOIN modules m ON m.id = e.module_id
WHERE m.course_id = $1 OR e.course_id = $1
ORDER BY e.created_at ASC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, courseID); err != nil {
		return nil, fmt.Errorf("list course exams: %w", err)
	}
	return exams, nil
}

// CreateSubmission assigns the next attempt number and inserts the submission in
// one transaction. A transaction-scoped advisory lock keyed by (exam, student)
// serialises concurrent attempts so numbering stays gapless.
func (r *ExamRepository) CreateSubmission(ctx context.Context, sub *models.ExamSubmission) (err error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`
	if _, err = tx.ExecContext(ctx, lockQuery, sub.ExamID, sub.StudentID); err != nil {
		return fmt.Errorf("lock submission attempts: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM exam_submissions WHERE exam_id = $1 AND student_id = $2`
	var prior int
	if err = tx.GetContext(ctx, &prior, countQuery, sub.ExamID, sub.StudentID); err != nil {
		return fmt.Errorf("count prior submissions: %w", err)
	}
	sub.AttemptNumber = prior + 1

	const insertQuery = `INSERT INTO exam_submissions (id, exam_id, student_id, answers, score, passed, attempt_number, submitted_at)
        VALUES (:id, :exam_id, :student_id, :answers, :score, :passed, :attempt_number, :submitted_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, sub); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert submission: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit submission: %w", err)
	}
	return nil
}

// ListSubmissions returns a student's attempts on an exam, oldest first.
func (r *ExamRepository) ListSubmissions(ctx context.Context, examID, studentID string) ([]models.ExamSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM exam_submissions WHERE exam_id = $1 AND student_id = $2 ORDER BY submitted_at ASC, attempt_number ASC`
	var subs []models.ExamSubmission
	if err := r.db.SelectContext(ctx, &subs, query, examID, studentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// HasPassed reports whether the student has at least one passing submission.
func (r *ExamRepository) HasPassed(ctx context.Context, examID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM exam_submissions WHERE exam_id = $1 AND student_id = $2 AND passed = TRUE)`
	var passed bool
	if err := r.db.GetContext(ctx, &passed, query, examID, studentID); err != nil {
		return false, fmt.Errorf("check passed submission: %w", err)
	}
	return passed, nil
}

// LatestSubmissions returns the most recent submission per exam for the student,
// restricted to the given exams.
func (r *ExamRepository) LatestSubmissions(ctx context.Context, studentID string, examIDs []string) ([]models.ExamSubmission, error) {
	if len(examIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT DISTINCT ON (exam_id) `+submissionColumns+`
FROM exam_submissions
WHERE student_id = ? AND exam_id IN (?)
ORDER BY exam_id, submitted_at DESC, attempt_number DESC`, studentID, examIDs)
	if err != nil {
		return nil, fmt.Errorf("build latest submissions query: %w", err)
	}
	var subs []models.ExamSubmission
	if err := r.db.SelectContext(ctx, &subs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list latest submissions: %w", err)
	}
	return subs, nil
}
