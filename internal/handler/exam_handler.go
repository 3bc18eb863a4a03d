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

type examService interface {
	Submit(ctx context.Context, examID, studentID string, req dto.SubmitExamRequest) (*models.ExamSubmission, error)
	History(ctx context.Context, examID, studentID string) ([]models.ExamSubmission, error)
}

// ExamHandler exposes exam submission endpoints.
type ExamHandler struct {
	exams examService
}

// NewExamHandler constructs ExamHandler.
func NewExamHandler(exams examService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// Submit godoc
// @Summary Submit answers for an exam as the calling student
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.SubmitExamRequest true "Answers keyed by question ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /exams/{id}/submissions [post]
func (h *ExamHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.exams.Submit(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// History godoc
// @Summary List a student's attempts on an exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions [get]
func (h *ExamHandler) History(c *gin.Context) {
	studentID, err := resolveStudentID(c, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	submissions, err := h.exams.History(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}
