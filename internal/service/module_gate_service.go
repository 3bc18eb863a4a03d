package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

// Gate reasons shown to students when a module is locked.
const (
	ReasonLessonsIncomplete     = "Complete all required lessons in the previous module"
	ReasonExamLessonsIncomplete = "Complete all required lessons in this module before taking the exam"
)

// ReasonExamNotPassed renders the lock reason for a previous module with an exam.
func ReasonExamNotPassed(threshold int) string {
	return fmt.Sprintf("Complete and pass the previous module's exam with at least %d%%", threshold)
}

type gateCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindModule(ctx context.Context, id string) (*models.Module, error)
	FindModuleByOrder(ctx context.Context, courseID string, orderIndex int) (*models.Module, error)
	ListModules(ctx context.Context, courseID string) ([]models.Module, error)
	ListContentsByModule(ctx context.Context, moduleID string) ([]models.Content, error)
}

type gateExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	HasPassed(ctx context.Context, examID, studentID string) (bool, error)
}

type completionReader interface {
	CompletedContentIDs(ctx context.Context, studentID string, contentIDs []string) (map[string]bool, error)
}

// ModuleGateService derives module lock state on every read; nothing is persisted.
type ModuleGateService struct {
	courses          gateCourseReader
	exams            gateExamReader
	progress         completionReader
	defaultThreshold int
	logger           *zap.Logger
}

// NewModuleGateService constructs ModuleGateService.
func NewModuleGateService(courses gateCourseReader, exams gateExamReader, progress completionReader, defaultThreshold int, logger *zap.Logger) *ModuleGateService {
	if defaultThreshold <= 0 {
		defaultThreshold = models.DefaultPassingScore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleGateService{courses: courses, exams: exams, progress: progress, defaultThreshold: defaultThreshold, logger: logger}
}

// GateStatus returns the module's lock state for the student.
func (s *ModuleGateService) GateStatus(ctx context.Context, studentID, moduleID string) (*dto.ModuleGate, error) {
	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if module.OrderIndex == 0 {
		return unlockedGate(module), nil
	}

	prev, err := s.courses.FindModuleByOrder(ctx, module.CourseID, module.OrderIndex-1)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		prev = nil
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous module")
	}
	return s.gateAfter(ctx, studentID, module, prev)
}

// CourseGates returns the gate of every module of the course in order.
func (s *ModuleGateService) CourseGates(ctx context.Context, studentID, courseID string) ([]dto.ModuleGate, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	modules, err := s.courses.ListModules(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}

	byOrder := make(map[int]*models.Module, len(modules))
	for i := range modules {
		byOrder[modules[i].OrderIndex] = &modules[i]
	}

	gates := make([]dto.ModuleGate, 0, len(modules))
	for i := range modules {
		if modules[i].OrderIndex == 0 {
			gates = append(gates, *unlockedGate(&modules[i]))
			continue
		}
		gate, err := s.gateAfter(ctx, studentID, &modules[i], byOrder[modules[i].OrderIndex-1])
		if err != nil {
			return nil, err
		}
		gates = append(gates, *gate)
	}
	return gates, nil
}

// EnsureUnlocked returns a MODULE_LOCKED error carrying the gate reason when the module is locked.
func (s *ModuleGateService) EnsureUnlocked(ctx context.Context, studentID, moduleID string) error {
	gate, err := s.GateStatus(ctx, studentID, moduleID)
	if err != nil {
		return err
	}
	if !gate.Unlocked() {
		return appErrors.Clone(appErrors.ErrModuleLocked, gate.Reason)
	}
	return nil
}

// CanAttemptExam checks that the module is unlocked and its required lessons are done.
func (s *ModuleGateService) CanAttemptExam(ctx context.Context, studentID, moduleID string) error {
	if err := s.EnsureUnlocked(ctx, studentID, moduleID); err != nil {
		return err
	}
	done, err := s.requiredLessonsDone(ctx, studentID, moduleID)
	if err != nil {
		return err
	}
	if !done {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, ReasonExamLessonsIncomplete)
	}
	return nil
}

// gateAfter decides module's gate from its predecessor, the module at
// order_index-1. A missing predecessor leaves the module unlocked. A linked exam
// is authoritative; required lessons only count when prev has no exam.
func (s *ModuleGateService) gateAfter(ctx context.Context, studentID string, module, prev *models.Module) (*dto.ModuleGate, error) {
	if prev == nil {
		s.logger.Warn("module has no predecessor", zap.String("module_id", module.ID), zap.Int("order_index", module.OrderIndex))
		return unlockedGate(module), nil
	}
	if prev.HasExam() {
		passed, err := s.exams.HasPassed(ctx, *prev.ExamID, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exam result")
		}
		if passed {
			return unlockedGate(module), nil
		}
		return lockedGate(module, ReasonExamNotPassed(s.examThreshold(ctx, *prev.ExamID))), nil
	}

	done, err := s.requiredLessonsDone(ctx, studentID, prev.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return unlockedGate(module), nil
	}
	return lockedGate(module, ReasonLessonsIncomplete), nil
}

func (s *ModuleGateService) examThreshold(ctx context.Context, examID string) int {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		s.logger.Warn("failed to load exam threshold", zap.String("exam_id", examID), zap.Error(err))
		return s.defaultThreshold
	}
	return exam.Threshold(s.defaultThreshold)
}

func (s *ModuleGateService) requiredLessonsDone(ctx context.Context, studentID, moduleID string) (bool, error) {
	contents, err := s.courses.ListContentsByModule(ctx, moduleID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list module contents")
	}
	var required []string
	for _, content := range contents {
		if content.IsRequired {
			required = append(required, content.ID)
		}
	}
	if len(required) == 0 {
		return true, nil
	}
	completed, err := s.progress.CompletedContentIDs(ctx, studentID, required)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson progress")
	}
	for _, id := range required {
		if !completed[id] {
			return false, nil
		}
	}
	return true, nil
}

func (s *ModuleGateService) loadModule(ctx context.Context, moduleID string) (*models.Module, error) {
	module, err := s.courses.FindModule(ctx, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return module, nil
}

func unlockedGate(module *models.Module) *dto.ModuleGate {
	return &dto.ModuleGate{ModuleID: module.ID, OrderIndex: module.OrderIndex, State: dto.GateUnlocked}
}

func lockedGate(module *models.Module, reason string) *dto.ModuleGate {
	return &dto.ModuleGate{ModuleID: module.ID, OrderIndex: module.OrderIndex, State: dto.GateLocked, Reason: reason}
}
