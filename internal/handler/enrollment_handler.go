package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
	"github.com/noah-isme/lms-progression-api/pkg/response"
)

type enrollmentService interface {
	Evaluate(ctx context.Context, studentID, courseID string) (*dto.EligibilityResult, error)
	EnrollSingle(ctx context.Context, req dto.EnrollRequest, actorID string) (*dto.EnrollmentResult, error)
	BulkEnroll(ctx context.Context, req dto.BulkEnrollRequest, actorID string) (*dto.BulkEnrollResult, error)
	CompleteCourse(ctx context.Context, enrollmentID string, req dto.CompleteCourseRequest, actorID string) (*dto.CompletionResult, error)
	Deactivate(ctx context.Context, enrollmentID, actorID string) error
	ListStudentEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

// EnrollmentHandler exposes eligibility and enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Eligibility godoc
// @Summary Check whether a student may enroll in a course
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/eligibility [get]
func (h *EnrollmentHandler) Eligibility(c *gin.Context) {
	studentID, err := resolveStudentID(c, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.enrollments.Evaluate(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.EnrollSingle(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// BulkEnroll godoc
// @Summary Enroll many students in one course
// @Description Each student is processed independently; failures are listed per student.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.BulkEnrollRequest true "Bulk enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/bulk [post]
func (h *EnrollmentHandler) BulkEnroll(c *gin.Context) {
	var req dto.BulkEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.BulkEnroll(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"requested":  len(req.StudentIDs),
		"successful": len(result.Successful),
		"failed":     len(result.Failed),
	})
}

// Complete godoc
// @Summary Record the final exam score of an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.CompleteCourseRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	var req dto.CompleteCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.CompleteCourse(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Deactivate godoc
// @Summary Deactivate an enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Deactivate(c *gin.Context) {
	if err := h.enrollments.Deactivate(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	enrollments, err := h.enrollments.ListStudentEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
