package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

type progressRepository interface {
	MarkComplete(ctx context.Context, studentID, contentID string, at time.Time) (bool, error)
	CompletedContentIDs(ctx context.Context, studentID string, contentIDs []string) (map[string]bool, error)
}

type statsCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindContent(ctx context.Context, id string) (*models.Content, error)
	ListContentsByCourse(ctx context.Context, courseID string) ([]models.Content, error)
}

type statsExamReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Exam, error)
	LatestSubmissions(ctx context.Context, studentID string, examIDs []string) ([]models.ExamSubmission, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ProgressService records lesson completion and aggregates course statistics.
type ProgressService struct {
	repo     progressRepository
	courses  statsCourseReader
	exams    statsExamReader
	cache    statsCache
	audit    auditEmitter
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewProgressService constructs ProgressService. cache may be nil.
func NewProgressService(repo progressRepository, courses statsCourseReader, exams statsExamReader, cache statsCache, audit auditEmitter, cacheTTL time.Duration, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = discardAudit{}
	}
	return &ProgressService{repo: repo, courses: courses, exams: exams, cache: cache, audit: audit, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Cached stats are keyed by a per-student generation. Invalidation moves the
// generation forward, so a result aggregated before it can never be read back.
const minStatsGenerationTTL = 24 * time.Hour

func statsKey(studentID, generation, courseID string) string {
	return "stats:" + studentID + ":" + generation + ":" + courseID
}

func statsGenerationKey(studentID string) string {
	return "statsgen:" + studentID
}

func (s *ProgressService) statsGeneration(ctx context.Context, studentID string) string {
	var generation string
	if hit, _ := s.cache.Get(ctx, statsGenerationKey(studentID), &generation); !hit || generation == "" {
		return "0"
	}
	return generation
}

// generationTTL outlives every stats entry so an expired generation cannot
// resurrect entries written under it.
func (s *ProgressService) generationTTL() time.Duration {
	if ttl := 2 * s.cacheTTL; ttl > minStatsGenerationTTL {
		return ttl
	}
	return minStatsGenerationTTL
}

// MarkComplete marks a content item completed for the student. Repeated calls are no-ops.
func (s *ProgressService) MarkComplete(ctx context.Context, studentID, contentID string) (*models.ContentProgress, error) {
	if studentID == "" || contentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and content id are required")
	}
	if _, err := s.courses.FindContent(ctx, contentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}

	now := s.now().UTC()
	changed, err := s.repo.MarkComplete(ctx, studentID, contentID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record progress")
	}
	if changed {
		s.InvalidateStudentStats(ctx, studentID)
		s.audit.Emit(ctx, dto.AuditEvent{
			Table:     models.AuditTableContentProgress,
			RecordID:  studentID + ":" + contentID,
			Action:    models.AuditActionInsert,
			NewValues: map[string]interface{}{"student_id": studentID, "content_id": contentID, "completed": true},
			ActorID:   studentID,
		})
	}
	return &models.ContentProgress{StudentID: studentID, ContentID: contentID, Completed: true, UpdatedAt: now}, nil
}

// ComputeCourseStats aggregates lesson and exam progress for the student in the course.
func (s *ProgressService) ComputeCourseStats(ctx context.Context, studentID, courseID string) (*dto.CourseStats, error) {
	stats, _, err := s.CourseStats(ctx, studentID, courseID)
	return stats, err
}

// CourseStats is ComputeCourseStats that also reports whether the cache answered.
func (s *ProgressService) CourseStats(ctx context.Context, studentID, courseID string) (*dto.CourseStats, bool, error) {
	if studentID == "" || courseID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id and course id are required")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if s.cache == nil {
		stats, err := s.aggregate(ctx, studentID, courseID)
		return stats, false, err
	}

	generation := s.statsGeneration(ctx, studentID)
	key := statsKey(studentID, generation, courseID)
	var cached dto.CourseStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	stats, err := s.aggregate(ctx, studentID, courseID)
	if err != nil {
		return nil, false, err
	}
	if s.statsGeneration(ctx, studentID) == generation {
		_ = s.cache.Set(ctx, key, stats, s.cacheTTL)
	}
	return stats, false, nil
}

func (s *ProgressService) aggregate(ctx context.Context, studentID, courseID string) (*dto.CourseStats, error) {
	contents, err := s.courses.ListContentsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course contents")
	}
	contentIDs := make([]string, 0, len(contents))
	for _, content := range contents {
		contentIDs = append(contentIDs, content.ID)
	}
	completed, err := s.repo.CompletedContentIDs(ctx, studentID, contentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson progress")
	}

	stats := &dto.CourseStats{TotalLessons: len(contents), RequiredCompleted: true}
	for _, content := range contents {
		if completed[content.ID] {
			stats.CompletedLessons++
		} else if content.IsRequired {
			stats.RequiredCompleted = false
		}
	}
	stats.CompletionRate = percent(stats.CompletedLessons, stats.TotalLessons)

	exams, err := s.exams.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course exams")
	}
	stats.ExamsCount = len(exams)
	examIDs := make([]string, 0, len(exams))
	for _, exam := range exams {
		examIDs = append(examIDs, exam.ID)
	}
	latest, err := s.exams.LatestSubmissions(ctx, studentID, examIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam results")
	}

	stats.ExamsAttempted = len(latest)
	if stats.ExamsAttempted > 0 {
		sum, passed := 0, 0
		for _, sub := range latest {
			sum += sub.Score
			if sub.Passed {
				passed++
			}
		}
		average := int(math.Round(float64(sum) / float64(stats.ExamsAttempted)))
		stats.AverageScore = &average
		stats.PassRate = percent(passed, stats.ExamsAttempted)
	}
	return stats, nil
}

// InvalidateStudentStats drops every cached course statistic of the student.
func (s *ProgressService) InvalidateStudentStats(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, statsGenerationKey(studentID), uuid.NewString(), s.generationTTL()); err != nil {
		s.logger.Warn("failed to advance stats generation", zap.String("student_id", studentID), zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "stats:"+studentID+":*"); err != nil {
		s.logger.Warn("failed to invalidate course stats", zap.String("student_id", studentID), zap.Error(err))
	}
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
