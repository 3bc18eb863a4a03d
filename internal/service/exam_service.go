package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	"github.com/noah-isme/lms-progression-api/internal/repository"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

type examRepository interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	CreateSubmission(ctx context.Context, sub *models.ExamSubmission) error
	ListSubmissions(ctx context.Context, examID, studentID string) ([]models.ExamSubmission, error)
}

type examAttemptGate interface {
	CanAttemptExam(ctx context.Context, studentID, moduleID string) error
}

type statsInvalidator interface {
	InvalidateStudentStats(ctx context.Context, studentID string)
}

// Score returns round(100 * correct / total). Unanswered questions count as
// wrong and an exam without questions scores 0.
func Score(exam *models.Exam, answers map[string]string) int {
	total := exam.TotalQuestions()
	if total == 0 {
		return 0
	}
	correct := 0
	for _, question := range exam.Questions {
		if choice, ok := answers[question.ID]; ok && choice == question.CorrectChoice {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// ExamService scores and records exam attempts.
type ExamService struct {
	repo             examRepository
	gate             examAttemptGate
	stats            statsInvalidator
	audit            auditEmitter
	metrics          *MetricsService
	defaultThreshold int
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(repo examRepository, gate examAttemptGate, stats statsInvalidator, audit auditEmitter, metrics *MetricsService, defaultThreshold int, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = discardAudit{}
	}
	if defaultThreshold <= 0 {
		defaultThreshold = models.DefaultPassingScore
	}
	return &ExamService{repo: repo, gate: gate, stats: stats, audit: audit, metrics: metrics, defaultThreshold: defaultThreshold, validator: validate, logger: logger}
}

// Submit scores the answers and appends a new attempt for the student.
func (s *ExamService) Submit(ctx context.Context, examID, studentID string, req dto.SubmitExamRequest) (*models.ExamSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.ModuleID != nil && s.gate != nil {
		if err := s.gate.CanAttemptExam(ctx, studentID, *exam.ModuleID); err != nil {
			return nil, err
		}
	}

	if req.Answers == nil {
		req.Answers = map[string]string{}
	}
	score := Score(exam, req.Answers)
	sub := &models.ExamSubmission{
		ExamID:    exam.ID,
		StudentID: studentID,
		Answers:   models.Answers(req.Answers),
		Score:     score,
		Passed:    score >= exam.Threshold(s.defaultThreshold),
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "concurrent submission detected, please retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	s.metrics.RecordExamSubmission(sub.Passed)
	if s.stats != nil {
		s.stats.InvalidateStudentStats(ctx, studentID)
	}
	s.audit.Emit(ctx, dto.AuditEvent{
		Table:    models.AuditTableExamSubmissions,
		RecordID: sub.ID,
		Action:   models.AuditActionInsert,
		NewValues: map[string]interface{}{
			"exam_id":        sub.ExamID,
			"student_id":     sub.StudentID,
			"score":          sub.Score,
			"passed":         sub.Passed,
			"attempt_number": sub.AttemptNumber,
		},
		ActorID: studentID,
	})
	return sub, nil
}

// History lists the student's attempts on the exam, oldest first.
func (s *ExamService) History(ctx context.Context, examID, studentID string) ([]models.ExamSubmission, error) {
	if _, err := s.loadExam(ctx, examID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubmissions(ctx, examID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return subs, nil
}

func (s *ExamService) loadExam(ctx context.Context, examID string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}
