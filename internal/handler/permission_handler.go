package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
	"github.com/noah-isme/lms-progression-api/pkg/response"
)

type permissionService interface {
	GrantPermission(ctx context.Context, req dto.GrantPermissionRequest, actorID string) (*dto.PermissionResult, error)
	RevokePermission(ctx context.Context, permissionID string, req dto.RevokePermissionRequest, actorID string) (*dto.PermissionResult, error)
	ListPermissions(ctx context.Context, studentID string) ([]dto.PermissionView, error)
}

// PermissionHandler manages special enrollment permissions.
type PermissionHandler struct {
	permissions permissionService
}

// NewPermissionHandler constructs PermissionHandler.
func NewPermissionHandler(permissions permissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// Grant godoc
// @Summary Grant a special enrollment permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Param payload body dto.GrantPermissionRequest true "Permission payload"
// @Success 201 {object} response.Envelope
// @Router /permissions [post]
func (h *PermissionHandler) Grant(c *gin.Context) {
	var req dto.GrantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.permissions.GrantPermission(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Revoke godoc
// @Summary Revoke a permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Param id path string true "Permission ID"
// @Param payload body dto.RevokePermissionRequest true "Revoke payload"
// @Success 200 {object} response.Envelope
// @Router /permissions/{id}/revoke [post]
func (h *PermissionHandler) Revoke(c *gin.Context) {
	var req dto.RevokePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.permissions.RevokePermission(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListByStudent godoc
// @Summary List a student's permissions
// @Tags Permissions
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/permissions [get]
func (h *PermissionHandler) ListByStudent(c *gin.Context) {
	views, err := h.permissions.ListPermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}
