package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

func TestCourseRepositoryListModules(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM modules WHERE course_id = $1 ORDER BY order_index ASC")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "title", "order_index", "exam_id"}).
			AddRow("mod-0", "course-1", "Intro", 0, "exam-0").
			AddRow("mod-1", "course-1", "Basics", 1, nil))

	modules, err := repo.ListModules(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.True(t, modules[0].HasExam())
	assert.False(t, modules[1].HasExam())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateAuditLog(context.Background(), auditFixture()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func auditFixture() *models.AuditLog {
	id := "enr-1"
	return &models.AuditLog{Action: models.AuditActionInsert, Resource: models.AuditTableEnrollments, ResourceID: &id, NewValues: []byte(`{"is_active":true}`)}
}
