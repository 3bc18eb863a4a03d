package models

import (
	"time"

	"github.com/lib/pq"
)

// PermissionGrant relaxes the single-active-course rule for a student.
// Expiry is evaluated lazily whenever the grant is read.
type PermissionGrant struct {
	ID                   string         `db:"id" json:"id"`
	StudentID            string         `db:"student_id" json:"student_id"`
	GrantedBy            string         `db:"granted_by" json:"granted_by"`
	Reason               string         `db:"reason" json:"reason"`
	AllowMultipleCourses bool           `db:"allow_multiple_courses" json:"allow_multiple_courses"`
	SpecificCourses      pq.StringArray `db:"specific_courses" json:"specific_courses"`
	MaxConcurrentCourses *int           `db:"max_concurrent_courses" json:"max_concurrent_courses,omitempty"`
	ExpiresAt            *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	IsActive             bool           `db:"is_active" json:"is_active"`
	RevokedAt            *time.Time     `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedBy            *string        `db:"revoked_by" json:"revoked_by,omitempty"`
	RevokeReason         *string        `db:"revoke_reason" json:"revoke_reason,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

// InEffect reports whether the grant is active and unexpired at now.
func (p PermissionGrant) InEffect(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// Covers reports whether courseID falls within the grant's course restriction.
func (p PermissionGrant) Covers(courseID string) bool {
	if len(p.SpecificCourses) == 0 {
		return true
	}
	for _, id := range p.SpecificCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
