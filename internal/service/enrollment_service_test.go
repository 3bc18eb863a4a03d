package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	"github.com/noah-isme/lms-progression-api/internal/repository"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]*models.Enrollment
	seq         int
	createErr   error
	racers      map[string]bool
}

func newMockEnrollmentRepo(existing ...models.Enrollment) *mockEnrollmentRepo {
	repo := &mockEnrollmentRepo{enrollments: make(map[string]*models.Enrollment)}
	for i := range existing {
		e := existing[i]
		repo.enrollments[e.ID] = &e
	}
	return repo
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.IsActive {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return m.ListActiveByStudent(ctx, studentID)
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.racers[enrollment.StudentID] {
		return fmt.Errorf("create enrollment: %w", repository.ErrDuplicate)
	}
	m.seq++
	enrollment.ID = fmt.Sprintf("enr-%d", m.seq)
	clone := *enrollment
	m.enrollments[enrollment.ID] = &clone
	return nil
}

func (m *mockEnrollmentRepo) RecordCompletion(ctx context.Context, id string, score float64, approved bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.FinalScore = &score
	e.IsApproved = &approved
	if approved {
		e.CompletedAt = &at
		e.IsActive = false
	}
	return nil
}

func (m *mockEnrollmentRepo) Deactivate(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.IsActive = false
	return nil
}

type mockPermissionRepo struct {
	mu     sync.Mutex
	grants map[string]*models.PermissionGrant
}

func newMockPermissionRepo(grants ...models.PermissionGrant) *mockPermissionRepo {
	repo := &mockPermissionRepo{grants: make(map[string]*models.PermissionGrant)}
	for i := range grants {
		g := grants[i]
		repo.grants[g.ID] = &g
	}
	return repo
}

func (m *mockPermissionRepo) Create(ctx context.Context, grant *models.PermissionGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	grant.ID = fmt.Sprintf("perm-%d", len(m.grants)+1)
	clone := *grant
	m.grants[grant.ID] = &clone
	return nil
}

func (m *mockPermissionRepo) FindByID(ctx context.Context, id string) (*models.PermissionGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.grants[id]; ok {
		clone := *g
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPermissionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.PermissionGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PermissionGrant
	for _, g := range m.grants {
		if g.StudentID == studentID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockPermissionRepo) ListInEffect(ctx context.Context, studentID string, now time.Time) ([]models.PermissionGrant, error) {
	all, _ := m.ListByStudent(ctx, studentID)
	var out []models.PermissionGrant
	for _, g := range all {
		if g.InEffect(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockPermissionRepo) Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok || !g.IsActive {
		return sql.ErrNoRows
	}
	g.IsActive = false
	g.RevokedAt = &at
	g.RevokedBy = &revokedBy
	g.RevokeReason = &reason
	return nil
}

type mockCourseRepo struct {
	courses  map[string]models.Course
	modules  map[string]models.Module
	contents map[string]models.Content
	err      error
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindModule(ctx context.Context, id string) (*models.Module, error) {
	if mod, ok := m.modules[id]; ok {
		return &mod, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindModuleByOrder(ctx context.Context, courseID string, orderIndex int) (*models.Module, error) {
	for _, mod := range m.modules {
		if mod.CourseID == courseID && mod.OrderIndex == orderIndex {
			found := mod
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListModules(ctx context.Context, courseID string) ([]models.Module, error) {
	var out []models.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			out = append(out, mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *mockCourseRepo) FindContent(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := m.contents[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListContentsByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	var out []models.Content
	for _, c := range m.contents {
		if c.ModuleID == moduleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) ListContentsByCourse(ctx context.Context, courseID string) ([]models.Content, error) {
	var out []models.Content
	for _, c := range m.contents {
		if mod, ok := m.modules[c.ModuleID]; ok && mod.CourseID == courseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func coursesFixture(ids ...string) *mockCourseRepo {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	for _, id := range ids {
		repo.courses[id] = models.Course{ID: id, Title: "Course " + id}
	}
	return repo
}

type enrollmentFixture struct {
	svc         *EnrollmentService
	repo        *mockEnrollmentRepo
	permissions *mockPermissionRepo
	audit       *recordingAudit
}

func newEnrollmentFixture(repo *mockEnrollmentRepo, permissions *mockPermissionRepo, courses *mockCourseRepo) enrollmentFixture {
	audit := &recordingAudit{}
	evaluator := NewEligibilityEvaluator(repo, permissions)
	svc := NewEnrollmentService(repo, permissions, courses, evaluator, audit, NewMetricsService(), EnrollmentConfig{BulkConcurrency: 2, BulkMaxStudents: 10}, nil, zap.NewNop())
	return enrollmentFixture{svc: svc, repo: repo, permissions: permissions, audit: audit}
}

func TestEnrollSingleSuccess(t *testing.T) {
	courses := coursesFixture("course-a")
	courses.courses["course-a"] = models.Course{ID: "course-a", PassingScore: 80}
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), courses)

	result, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-a", Notes: " welcome "}, "admin-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotEmpty(t, result.EnrollmentID)

	created := f.repo.enrollments[result.EnrollmentID]
	assert.Equal(t, models.EnrollmentTypeManual, created.EnrollmentType)
	assert.Equal(t, 80.0, created.PassingScore)
	assert.Equal(t, "welcome", created.Notes)
	assert.Equal(t, "admin-1", created.EnrolledBy)

	events := f.audit.byTable(models.AuditTableEnrollments)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditActionInsert, events[0].Action)
	assert.Equal(t, result.EnrollmentID, events[0].RecordID)
}

func TestEnrollSingleDefaultsPassingScore(t *testing.T) {
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture("course-a"))

	result, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-a"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, float64(models.DefaultPassingScore), f.repo.enrollments[result.EnrollmentID].PassingScore)
}

func TestEnrollSingleFailures(t *testing.T) {
	existing := models.Enrollment{ID: "enr-x", StudentID: "stu-1", CourseID: "course-a", IsActive: true}

	t.Run("validation", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture("course-a"))
		_, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{CourseID: "course-a"}, "admin")
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})

	t.Run("course not found", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture())
		_, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "missing"}, "admin")
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(existing), newMockPermissionRepo(), coursesFixture("course-a"))
		_, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-a"}, "admin")
		assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEnrollment))
		assert.Empty(t, f.audit.events)
	})

	t.Run("ineligible", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(existing), newMockPermissionRepo(), coursesFixture("course-a", "course-b"))
		_, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-b"}, "admin")
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrIneligibleEnrollment))
		assert.Equal(t, ReasonIncompleteCourse, appErrors.FromError(err).Message)
	})

	t.Run("lost insert race", func(t *testing.T) {
		repo := newMockEnrollmentRepo()
		repo.racers = map[string]bool{"stu-1": true}
		f := newEnrollmentFixture(repo, newMockPermissionRepo(), coursesFixture("course-a"))
		_, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-a"}, "admin")
		assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEnrollment))
	})

	t.Run("store error", func(t *testing.T) {
		repo := newMockEnrollmentRepo()
		repo.createErr = errors.New("connection refused")
		f := newEnrollmentFixture(repo, newMockPermissionRepo(), coursesFixture("course-a"))
		_, err := f.svc.EnrollSingle(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-a"}, "admin")
		assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	})
}

func TestBulkEnrollPartitionsOutcomes(t *testing.T) {
	existing := models.Enrollment{ID: "enr-s2", StudentID: "s2", CourseID: "course-a", IsActive: true}
	f := newEnrollmentFixture(newMockEnrollmentRepo(existing), newMockPermissionRepo(), coursesFixture("course-a"))

	result, err := f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{StudentIDs: []string{"s1", "s2", "s3"}, CourseID: "course-a"}, "admin-1")
	require.NoError(t, err)

	require.Len(t, result.Successful, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "s1", result.Successful[0].StudentID)
	assert.Equal(t, "s3", result.Successful[1].StudentID)
	assert.Equal(t, "s2", result.Failed[0].StudentID)
	assert.Equal(t, ReasonAlreadyEnrolled, result.Failed[0].Reason)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, result.Failed[0].Code)

	events := f.audit.byTable(models.AuditTableEnrollments)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, models.EnrollmentTypeBulk, e.Metadata["enrollment_type"])
	}
}

func TestBulkEnrollResultCoversEveryID(t *testing.T) {
	existing := []models.Enrollment{
		{ID: "enr-b", StudentID: "busy", CourseID: "course-z", IsActive: true},
	}
	f := newEnrollmentFixture(newMockEnrollmentRepo(existing...), newMockPermissionRepo(), coursesFixture("course-a"))

	ids := []string{"a", "busy", "b", "c", "d"}
	result, err := f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{StudentIDs: ids, CourseID: "course-a"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, len(ids), len(result.Successful)+len(result.Failed))

	succeeded := make(map[string]bool)
	for _, s := range result.Successful {
		succeeded[s.StudentID] = true
	}
	reasons := make(map[string]string)
	for _, failure := range result.Failed {
		reasons[failure.StudentID] = failure.Reason
		assert.False(t, succeeded[failure.StudentID], "student %s in both lists", failure.StudentID)
	}
	assert.Equal(t, ReasonIncompleteCourse, reasons["busy"])
	assert.Len(t, result.Successful, 4)
}

func TestBulkEnrollRejectsRepeatedStudent(t *testing.T) {
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture("course-a"))

	result, err := f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{StudentIDs: []string{"s1", "s2", "s1"}, CourseID: "course-a"}, "admin")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.repo.enrollments)
	assert.Empty(t, f.audit.byTable(models.AuditTableEnrollments))
}

func TestBulkEnrollRequestErrors(t *testing.T) {
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture("course-a"))

	_, err := f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{CourseID: "course-a"}, "admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	tooMany := make([]string, 11)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("s%d", i)
	}
	_, err = f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{StudentIDs: tooMany, CourseID: "course-a"}, "admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{StudentIDs: []string{"s1"}, CourseID: "missing"}, "admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.repo.enrollments)
}

func TestConcurrentLimitScenario(t *testing.T) {
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture("c1", "c2", "c3"))
	ctx := context.Background()

	_, err := f.svc.GrantPermission(ctx, dto.GrantPermissionRequest{StudentID: "stu-1", Reason: "advanced track", AllowMultipleCourses: true, MaxConcurrentCourses: intPtr(2)}, "admin")
	require.NoError(t, err)

	for _, course := range []string{"c1", "c2"} {
		_, err := f.svc.EnrollSingle(ctx, dto.EnrollRequest{StudentID: "stu-1", CourseID: course}, "admin")
		require.NoError(t, err)
	}

	result, err := f.svc.Evaluate(ctx, "stu-1", "c3")
	require.NoError(t, err)
	assert.False(t, result.CanEnroll)
	assert.True(t, result.HasPermission)
	assert.Contains(t, result.Reason, "concurrent course limit")
	assert.Equal(t, 2, result.CurrentEnrollments)
}

func TestGrantPermissionValidation(t *testing.T) {
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture())
	ctx := context.Background()

	_, err := f.svc.GrantPermission(ctx, dto.GrantPermissionRequest{StudentID: "stu-1", Reason: "   "}, "admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.GrantPermission(ctx, dto.GrantPermissionRequest{StudentID: "stu-1", Reason: "x", MaxConcurrentCourses: intPtr(0)}, "admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	past := time.Now().Add(-time.Hour)
	_, err = f.svc.GrantPermission(ctx, dto.GrantPermissionRequest{StudentID: "stu-1", Reason: "x", ExpiresAt: &past}, "admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	assert.Empty(t, f.permissions.grants)
	assert.Empty(t, f.audit.events)
}

func TestRevokePermission(t *testing.T) {
	grant := models.PermissionGrant{ID: "perm-1", StudentID: "stu-1", Reason: "pilot", IsActive: true}
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(grant), coursesFixture())
	ctx := context.Background()

	result, err := f.svc.RevokePermission(ctx, "perm-1", dto.RevokePermissionRequest{Reason: "ended"}, "admin-2")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, f.permissions.grants["perm-1"].IsActive)

	events := f.audit.byTable(models.AuditTablePermissions)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditActionUpdate, events[0].Action)
	assert.Equal(t, true, events[0].OldValues["is_active"])
	assert.Equal(t, false, events[0].NewValues["is_active"])

	_, err = f.svc.RevokePermission(ctx, "perm-1", dto.RevokePermissionRequest{Reason: "again"}, "admin-2")
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))

	_, err = f.svc.RevokePermission(ctx, "missing", dto.RevokePermissionRequest{Reason: "x"}, "admin-2")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.RevokePermission(ctx, "perm-1", dto.RevokePermissionRequest{}, "admin-2")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestListPermissionsMarksEffect(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(
		models.PermissionGrant{ID: "p1", StudentID: "stu-1", IsActive: true},
		models.PermissionGrant{ID: "p2", StudentID: "stu-1", IsActive: true, ExpiresAt: &expired},
	), coursesFixture())

	views, err := f.svc.ListPermissions(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	effect := map[string]bool{}
	for _, v := range views {
		effect[v.ID] = v.InEffect
	}
	assert.True(t, effect["p1"])
	assert.False(t, effect["p2"])
}

func TestCompleteCourse(t *testing.T) {
	enrollment := models.Enrollment{ID: "enr-1", StudentID: "stu-1", CourseID: "course-a", IsActive: true, PassingScore: 70}
	ctx := context.Background()

	t.Run("below passing score keeps enrollment active", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(enrollment), newMockPermissionRepo(), coursesFixture())
		score := 69.5
		result, err := f.svc.CompleteCourse(ctx, "enr-1", dto.CompleteCourseRequest{ExamScore: &score}, "teacher-1")
		require.NoError(t, err)
		assert.False(t, result.IsApproved)
		stored := f.repo.enrollments["enr-1"]
		assert.True(t, stored.IsActive)
		assert.Nil(t, stored.CompletedAt)
		assert.Equal(t, 69.5, *stored.FinalScore)
	})

	t.Run("passing score closes enrollment", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(enrollment), newMockPermissionRepo(), coursesFixture())
		score := 70.0
		result, err := f.svc.CompleteCourse(ctx, "enr-1", dto.CompleteCourseRequest{ExamScore: &score}, "teacher-1")
		require.NoError(t, err)
		assert.True(t, result.IsApproved)
		stored := f.repo.enrollments["enr-1"]
		assert.False(t, stored.IsActive)
		assert.NotNil(t, stored.CompletedAt)

		events := f.audit.byTable(models.AuditTableEnrollments)
		require.Len(t, events, 1)
		assert.Equal(t, true, events[0].NewValues["is_approved"])
		assert.Equal(t, 70.0, events[0].NewValues["final_score"])

		_, err = f.svc.CompleteCourse(ctx, "enr-1", dto.CompleteCourseRequest{ExamScore: &score}, "teacher-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
	})

	t.Run("invalid score", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(enrollment), newMockPermissionRepo(), coursesFixture())
		score := 101.0
		_, err := f.svc.CompleteCourse(ctx, "enr-1", dto.CompleteCourseRequest{ExamScore: &score}, "teacher-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		_, err = f.svc.CompleteCourse(ctx, "enr-1", dto.CompleteCourseRequest{}, "teacher-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})

	t.Run("missing enrollment", func(t *testing.T) {
		f := newEnrollmentFixture(newMockEnrollmentRepo(), newMockPermissionRepo(), coursesFixture())
		score := 90.0
		_, err := f.svc.CompleteCourse(ctx, "nope", dto.CompleteCourseRequest{ExamScore: &score}, "teacher-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	})
}

func TestDeactivateEnrollment(t *testing.T) {
	f := newEnrollmentFixture(newMockEnrollmentRepo(models.Enrollment{ID: "enr-1", StudentID: "stu-1", CourseID: "c", IsActive: true}), newMockPermissionRepo(), coursesFixture("c", "d"))
	ctx := context.Background()

	require.NoError(t, f.svc.Deactivate(ctx, "enr-1", "admin"))
	assert.False(t, f.repo.enrollments["enr-1"].IsActive)
	assert.True(t, appErrors.Is(f.svc.Deactivate(ctx, "enr-1", "admin"), appErrors.ErrPreconditionFailed))

	result, err := f.svc.Evaluate(ctx, "stu-1", "d")
	require.NoError(t, err)
	assert.True(t, result.CanEnroll)
}
