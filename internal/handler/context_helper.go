package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-progression-api/internal/middleware"
	"github.com/noah-isme/lms-progression-api/internal/models"
	appErrors "github.com/noah-isme/lms-progression-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// resolveStudentID picks the student a request acts on. Students always act on
// themselves; staff must name the student explicitly.
func resolveStudentID(c *gin.Context, requested string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role.IsStaff() {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "studentId is required")
		}
		return requested, nil
	}
	if requested != "" && requested != claims.UserID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records")
	}
	return claims.UserID, nil
}
