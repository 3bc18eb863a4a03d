package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

func TestExamRepositoryFindByIDLoadsQuestions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM exams WHERE id = $1")).
		WithArgs("exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "module_id", "course_id", "title", "passing_score", "created_at"}).
			AddRow("exam-1", "mod-1", nil, "Module 1 exam", nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM exam_questions WHERE exam_id = $1 ORDER BY position ASC")).
		WithArgs("exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "position", "correct_choice"}).
			AddRow("q1", "exam-1", 1, "a").
			AddRow("q2", "exam-1", 2, "c"))

	exam, err := repo.FindByID(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Equal(t, 2, exam.TotalQuestions())
	assert.Nil(t, exam.PassingScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryCreateSubmissionAssignsAttempt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("exam-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM exam_submissions WHERE exam_id = $1 AND student_id = $2")).
		WithArgs("exam-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exam_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sub := &models.ExamSubmission{ExamID: "exam-1", StudentID: "stu-1", Answers: models.Answers{"q1": "a"}, Score: 100, Passed: true}
	require.NoError(t, repo.CreateSubmission(context.Background(), sub))
	assert.Equal(t, 3, sub.AttemptNumber)
	assert.NotEmpty(t, sub.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryCreateSubmissionRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM exam_submissions")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.CreateSubmission(context.Background(), &models.ExamSubmission{ExamID: "exam-1", StudentID: "stu-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryLatestSubmissions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (exam_id)")).
		WithArgs("stu-1", "exam-1", "exam-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "student_id", "answers", "score", "passed", "attempt_number", "submitted_at"}).
			AddRow("sub-1", "exam-1", "stu-1", []byte(`{"q1":"a"}`), 80, true, 2, now))

	subs, err := repo.LatestSubmissions(context.Background(), "stu-1", []string{"exam-1", "exam-2"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "a", subs[0].Answers["q1"])
	require.NoError(t, mock.ExpectationsWereMet())

	subs, err = repo.LatestSubmissions(context.Background(), "stu-1", nil)
	require.NoError(t, err)
	assert.Nil(t, subs)
}
