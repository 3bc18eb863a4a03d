package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/middleware"
	"github.com/noah-isme/lms-progression-api/internal/models"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
	"github.com/noah-isme/lms-progression-api/pkg/response"
)

type progressService interface {
	MarkComplete(ctx context.Context, studentID, contentID string) (*models.ContentProgress, error)
	CourseStats(ctx context.Context, studentID, courseID string) (*dto.CourseStats, bool, error)
}

type gateService interface {
	GateStatus(ctx context.Context, studentID, moduleID string) (*dto.ModuleGate, error)
	CourseGates(ctx context.Context, studentID, courseID string) ([]dto.ModuleGate, error)
}

// ProgressHandler exposes lesson progress, course statistics and module gates.
type ProgressHandler struct {
	progress progressService
	gates    gateService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress progressService, gates gateService) *ProgressHandler {
	return &ProgressHandler{progress: progress, gates: gates}
}

// MarkComplete godoc
// @Summary Mark a lesson completed for the calling student
// @Tags Progress
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id}/complete [post]
func (h *ProgressHandler) MarkComplete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	progress, err := h.progress.MarkComplete(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// CourseStats godoc
// @Summary Course progress statistics for a student
// @Tags Progress
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/stats [get]
func (h *ProgressHandler) CourseStats(c *gin.Context) {
	studentID, err := resolveStudentID(c, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, hit, err := h.progress.CourseStats(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// ModuleGate godoc
// @Summary Lock state of a module for a student
// @Tags Progress
// @Produce json
// @Param id path string true "Module ID"
// @Param studentId query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Router /modules/{id}/gate [get]
func (h *ProgressHandler) ModuleGate(c *gin.Context) {
	studentID, err := resolveStudentID(c, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	gate, err := h.gates.GateStatus(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gate, nil)
}

// CourseGates godoc
// @Summary Lock state of every module in a course
// @Tags Progress
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/gates [get]
func (h *ProgressHandler) CourseGates(c *gin.Context) {
	studentID, err := resolveStudentID(c, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	gates, err := h.gates.CourseGates(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gates, nil)
}
