package dto

import (
	"time"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

// GrantPermissionRequest creates a special enrollment permission.
type GrantPermissionRequest struct {
	StudentID            string     `json:"studentId" validate:"required"`
	Reason               string     `json:"reason" validate:"required"`
	AllowMultipleCourses bool       `json:"allowMultipleCourses"`
	SpecificCourses      []string   `json:"specificCourses" validate:"omitempty,dive,required"`
	MaxConcurrentCourses *int       `json:"maxConcurrentCourses" validate:"omitempty,gte=1"`
	ExpiresAt            *time.Time `json:"expiresAt"`
}

// RevokePermissionRequest deactivates a permission.
type RevokePermissionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PermissionResult reports a grant or revoke outcome.
type PermissionResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	PermissionID string `json:"permissionId"`
}

// PermissionView decorates a grant with its lazily evaluated state.
type PermissionView struct {
	models.PermissionGrant
	InEffect bool `json:"in_effect"`
}
