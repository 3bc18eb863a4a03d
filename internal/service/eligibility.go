package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

// Eligibility reasons returned to callers.
const (
	ReasonAlreadyEnrolled   = "already enrolled in this course"
	ReasonIncompleteCourse  = "student has an incomplete/active course"
	ReasonNotCovered        = "course not covered by permission"
	ReasonEligible          = "eligible"
	ReasonEligiblePermitted = "eligible under special permission"
)

// ReasonConcurrentLimit renders the concurrency-limit rejection for limit.
func ReasonConcurrentLimit(limit int) string {
	return fmt.Sprintf("concurrent course limit reached (%d)", limit)
}

type activeEnrollmentReader interface {
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type grantReader interface {
	ListInEffect(ctx context.Context, studentID string, now time.Time) ([]models.PermissionGrant, error)
}

// EligibilityEvaluator decides whether a student may start a course. It only reads.
type EligibilityEvaluator struct {
	enrollments activeEnrollmentReader
	grants      grantReader
	now         func() time.Time
}

// NewEligibilityEvaluator constructs an evaluator.
func NewEligibilityEvaluator(enrollments activeEnrollmentReader, grants grantReader) *EligibilityEvaluator {
	return &EligibilityEvaluator{enrollments: enrollments, grants: grants, now: time.Now}
}

// Evaluate loads the student's active enrollments and in-effect grants and applies DecideEligibility.
func (e *EligibilityEvaluator) Evaluate(ctx context.Context, studentID, courseID string) (*dto.EligibilityResult, error) {
	if studentID == "" || courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and course id are required")
	}
	active, err := e.enrollments.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollments")
	}
	now := e.now().UTC()
	grants, err := e.grants.ListInEffect(ctx, studentID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment permissions")
	}
	result := DecideEligibility(active, grants, courseID, now)
	return &result, nil
}

// DecideEligibility applies the single-active-course rule and its permission
// relaxations. Grants not in effect at now are ignored. When several grants
// apply the most permissive wins: coverage is the union and the largest limit
// counts, with a grant without a limit meaning unlimited.
func DecideEligibility(active []models.Enrollment, grants []models.PermissionGrant, courseID string, now time.Time) dto.EligibilityResult {
	result := dto.EligibilityResult{CurrentEnrollments: len(active)}
	for _, enrollment := range active {
		if enrollment.Incomplete() {
			result.IncompleteCourses++
		}
	}

	var inEffect []models.PermissionGrant
	for _, grant := range grants {
		if grant.InEffect(now) {
			inEffect = append(inEffect, grant)
		}
	}
	result.HasPermission = len(inEffect) > 0

	for _, enrollment := range active {
		if enrollment.CourseID == courseID {
			result.Reason = ReasonAlreadyEnrolled
			return result
		}
	}

	if len(inEffect) == 0 {
		if result.CurrentEnrollments == 0 {
			result.CanEnroll = true
			result.Reason = ReasonEligible
			return result
		}
		result.Reason = ReasonIncompleteCourse
		return result
	}

	covered := false
	unlimited := false
	limit := 0
	for _, grant := range inEffect {
		if !grant.Covers(courseID) {
			continue
		}
		covered = true
		if grant.MaxConcurrentCourses == nil {
			unlimited = true
			continue
		}
		if *grant.MaxConcurrentCourses > limit {
			limit = *grant.MaxConcurrentCourses
		}
	}

	switch {
	case !covered:
		result.Reason = ReasonNotCovered
	case !unlimited && result.CurrentEnrollments >= limit:
		result.Reason = ReasonConcurrentLimit(limit)
	default:
		result.CanEnroll = true
		result.Reason = ReasonEligiblePermitted
	}
	return result
}
