package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	"github.com/noah-isme/lms-progression-api/internal/repository"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	RecordCompletion(ctx context.Context, id string, score float64, approved bool, at time.Time) error
	Deactivate(ctx context.Context, id string, at time.Time) error
}

type permissionRepository interface {
	Create(ctx context.Context, grant *models.PermissionGrant) error
	FindByID(ctx context.Context, id string) (*models.PermissionGrant, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.PermissionGrant, error)
	Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type eligibilityChecker interface {
	Evaluate(ctx context.Context, studentID, courseID string) (*dto.EligibilityResult, error)
}

// EnrollmentConfig tunes enrollment defaults and bulk fan-out.
type EnrollmentConfig struct {
	DefaultPassingScore float64
	BulkConcurrency     int
	BulkMaxStudents     int
}

// EnrollmentService orchestrates enrollment, permission and completion workflows.
type EnrollmentService struct {
	repo        enrollmentRepository
	permissions permissionRepository
	courses     courseReader
	eligibility eligibilityChecker
	audit       auditEmitter
	metrics     *MetricsService
	config      EnrollmentConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, permissions permissionRepository, courses courseReader, eligibility eligibilityChecker, audit auditEmitter, metrics *MetricsService, cfg EnrollmentConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = discardAudit{}
	}
	if cfg.DefaultPassingScore <= 0 {
		cfg.DefaultPassingScore = models.DefaultPassingScore
	}
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = 4
	}
	if cfg.BulkMaxStudents <= 0 {
		cfg.BulkMaxStudents = 500
	}
	return &EnrollmentService{
		repo:        repo,
		permissions: permissions,
		courses:     courses,
		eligibility: eligibility,
		audit:       audit,
		metrics:     metrics,
		config:      cfg,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Evaluate reports whether the student may enroll in the course.
func (s *EnrollmentService) Evaluate(ctx context.Context, studentID, courseID string) (*dto.EligibilityResult, error) {
	return s.eligibility.Evaluate(ctx, studentID, courseID)
}

// EnrollSingle creates a manual enrollment after duplicate and eligibility checks.
func (s *EnrollmentService) EnrollSingle(ctx context.Context, req dto.EnrollRequest, actorID string) (*dto.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	course, err := s.loadCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.enroll(ctx, course, req.StudentID, actorID, req.Notes, models.EnrollmentTypeManual)
	if err != nil {
		return nil, err
	}
	return &dto.EnrollmentResult{Success: true, Message: "student enrolled", EnrollmentID: enrollment.ID}, nil
}

// BulkEnroll enrolls each student independently. Per-student failures are
// collected in the result; only request-level problems return an error.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, req dto.BulkEnrollRequest, actorID string) (*dto.BulkEnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk enrollment payload")
	}
	if len(req.StudentIDs) > s.config.BulkMaxStudents {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bulk enrollment accepts at most %d students", s.config.BulkMaxStudents))
	}
	course, err := s.loadCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		enrollmentID string
		err          *appErrors.Error
	}
	outcomes := make([]outcome, len(req.StudentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.BulkConcurrency)
	for i, studentID := range req.StudentIDs {
		i, studentID := i, studentID
		g.Go(func() error {
			enrollment, err := s.enroll(gctx, course, studentID, actorID, req.Notes, models.EnrollmentTypeBulk)
			if err != nil {
				outcomes[i].err = appErrors.FromError(err)
				return nil
			}
			outcomes[i].enrollmentID = enrollment.ID
			return nil
		})
	}
	_ = g.Wait()

	result := &dto.BulkEnrollResult{
		Successful: make([]dto.BulkEnrollSuccess, 0, len(outcomes)),
		Failed:     []dto.BulkEnrollFailure{},
	}
	for i, out := range outcomes {
		studentID := req.StudentIDs[i]
		if out.err != nil {
			result.Failed = append(result.Failed, dto.BulkEnrollFailure{StudentID: studentID, Reason: out.err.Message, Code: out.err.Code})
			continue
		}
		result.Successful = append(result.Successful, dto.BulkEnrollSuccess{StudentID: studentID, EnrollmentID: out.enrollmentID})
	}

	s.logger.Info("bulk enrollment processed",
		zap.String("course_id", course.ID),
		zap.Int("requested", len(req.StudentIDs)),
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *EnrollmentService) enroll(ctx context.Context, course *models.Course, studentID, actorID, notes string, kind models.EnrollmentType) (*models.Enrollment, error) {
	enrollment, outcome, err := s.tryEnroll(ctx, course, studentID, actorID, notes, kind)
	s.metrics.RecordEnrollmentAttempt(string(kind), outcome)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, dto.AuditEvent{
		Table:    models.AuditTableEnrollments,
		RecordID: enrollment.ID,
		Action:   models.AuditActionInsert,
		NewValues: map[string]interface{}{
			"student_id":      enrollment.StudentID,
			"course_id":       enrollment.CourseID,
			"is_active":       enrollment.IsActive,
			"enrolled_by":     enrollment.EnrolledBy,
			"enrollment_type": enrollment.EnrollmentType,
			"passing_score":   enrollment.PassingScore,
			"notes":           enrollment.Notes,
		},
		Metadata: map[string]interface{}{"enrollment_type": enrollment.EnrollmentType},
		ActorID:  actorID,
	})
	return enrollment, nil
}

func (s *EnrollmentService) tryEnroll(ctx context.Context, course *models.Course, studentID, actorID, notes string, kind models.EnrollmentType) (*models.Enrollment, string, error) {
	exists, err := s.repo.ExistsActive(ctx, studentID, course.ID)
	if err != nil {
		return nil, OutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, OutcomeDuplicate, appErrors.Clone(appErrors.ErrDuplicateEnrollment, ReasonAlreadyEnrolled)
	}

	eligibility, err := s.eligibility.Evaluate(ctx, studentID, course.ID)
	if err != nil {
		return nil, OutcomeError, err
	}
	if !eligibility.CanEnroll {
		return nil, OutcomeIneligible, appErrors.Clone(appErrors.ErrIneligibleEnrollment, eligibility.Reason)
	}

	passingScore := course.PassingScore
	if passingScore <= 0 {
		passingScore = s.config.DefaultPassingScore
	}
	enrollment := &models.Enrollment{
		StudentID:      studentID,
		CourseID:       course.ID,
		IsActive:       true,
		EnrolledBy:     actorID,
		EnrollmentType: kind,
		Notes:          strings.TrimSpace(notes),
		PassingScore:   passingScore,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, OutcomeDuplicate, appErrors.Clone(appErrors.ErrDuplicateEnrollment, ReasonAlreadyEnrolled)
		}
		return nil, OutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, OutcomeEnrolled, nil
}

// GrantPermission issues a special enrollment permission to a student.
func (s *EnrollmentService) GrantPermission(ctx context.Context, req dto.GrantPermissionRequest, actorID string) (*dto.PermissionResult, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permission payload")
	}
	now := s.now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiresAt must be in the future")
	}

	grant := &models.PermissionGrant{
		StudentID:            req.StudentID,
		GrantedBy:            actorID,
		Reason:               req.Reason,
		AllowMultipleCourses: req.AllowMultipleCourses,
		SpecificCourses:      req.SpecificCourses,
		MaxConcurrentCourses: req.MaxConcurrentCourses,
		ExpiresAt:            req.ExpiresAt,
		IsActive:             true,
		CreatedAt:            now,
	}
	if err := s.permissions.Create(ctx, grant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant permission")
	}

	s.audit.Emit(ctx, dto.AuditEvent{
		Table:    models.AuditTablePermissions,
		RecordID: grant.ID,
		Action:   models.AuditActionInsert,
		NewValues: map[string]interface{}{
			"student_id":             grant.StudentID,
			"granted_by":             grant.GrantedBy,
			"reason":                 grant.Reason,
			"allow_multiple_courses": grant.AllowMultipleCourses,
			"specific_courses":       []string(grant.SpecificCourses),
			"max_concurrent_courses": grant.MaxConcurrentCourses,
			"expires_at":             grant.ExpiresAt,
			"is_active":              true,
		},
		ActorID: actorID,
	})
	return &dto.PermissionResult{Success: true, Message: "permission granted", PermissionID: grant.ID}, nil
}

// RevokePermission deactivates an active permission.
func (s *EnrollmentService) RevokePermission(ctx context.Context, permissionID string, req dto.RevokePermissionRequest, actorID string) (*dto.PermissionResult, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid revoke payload")
	}
	grant, err := s.permissions.FindByID(ctx, permissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "permission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permission")
	}
	if !grant.IsActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "permission already revoked")
	}

	if err := s.permissions.Revoke(ctx, permissionID, actorID, req.Reason, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "permission already revoked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke permission")
	}

	s.audit.Emit(ctx, dto.AuditEvent{
		Table:     models.AuditTablePermissions,
		RecordID:  permissionID,
		Action:    models.AuditActionUpdate,
		OldValues: map[string]interface{}{"is_active": true},
		NewValues: map[string]interface{}{"is_active": false, "revoked_by": actorID, "revoke_reason": req.Reason},
		ActorID:   actorID,
	})
	return &dto.PermissionResult{Success: true, Message: "permission revoked", PermissionID: permissionID}, nil
}

// ListPermissions returns every grant of the student with its current effect.
func (s *EnrollmentService) ListPermissions(ctx context.Context, studentID string) ([]dto.PermissionView, error) {
	grants, err := s.permissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permissions")
	}
	now := s.now().UTC()
	views := make([]dto.PermissionView, 0, len(grants))
	for _, grant := range grants {
		views = append(views, dto.PermissionView{PermissionGrant: grant, InEffect: grant.InEffect(now)})
	}
	return views, nil
}

// CompleteCourse records the final exam score. A passing score closes the
// enrollment; a failing one is stored and the enrollment stays active.
func (s *EnrollmentService) CompleteCourse(ctx context.Context, enrollmentID string, req dto.CompleteCourseRequest, actorID string) (*dto.CompletionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "examScore must be between 0 and 100")
	}
	enrollment, err := s.findEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if !enrollment.IsActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}

	threshold := enrollment.PassingScore
	if threshold <= 0 {
		threshold = s.config.DefaultPassingScore
	}
	score := *req.ExamScore
	approved := score >= threshold

	if err := s.repo.RecordCompletion(ctx, enrollment.ID, score, approved, s.now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}

	s.audit.Emit(ctx, dto.AuditEvent{
		Table:     models.AuditTableEnrollments,
		RecordID:  enrollment.ID,
		Action:    models.AuditActionUpdate,
		OldValues: map[string]interface{}{"is_active": enrollment.IsActive, "final_score": enrollment.FinalScore},
		NewValues: map[string]interface{}{"is_active": !approved, "final_score": score, "is_approved": approved},
		Metadata:  map[string]interface{}{"passing_score": threshold},
		ActorID:   actorID,
	})

	if !approved {
		return &dto.CompletionResult{Success: true, Message: fmt.Sprintf("score below passing score (%g)", threshold)}, nil
	}
	return &dto.CompletionResult{Success: true, Message: "course completed", IsApproved: true}, nil
}

// Deactivate closes an enrollment without completing it.
func (s *EnrollmentService) Deactivate(ctx context.Context, enrollmentID, actorID string) error {
	enrollment, err := s.findEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if !enrollment.IsActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}
	if err := s.repo.Deactivate(ctx, enrollment.ID, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate enrollment")
	}
	s.audit.Emit(ctx, dto.AuditEvent{
		Table:     models.AuditTableEnrollments,
		RecordID:  enrollment.ID,
		Action:    models.AuditActionUpdate,
		OldValues: map[string]interface{}{"is_active": true},
		NewValues: map[string]interface{}{"is_active": false},
		ActorID:   actorID,
	})
	return nil
}

// ListStudentEnrollments returns the student's enrollment history.
func (s *EnrollmentService) ListStudentEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) loadCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *EnrollmentService) findEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}
