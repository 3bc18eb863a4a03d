package models

import (
	"encoding/json"
	"time"
)

// Audit actions emitted by the progression core.
const (
	AuditActionInsert = "INSERT"
	AuditActionUpdate = "UPDATE"
)

// Audited tables.
const (
	AuditTableEnrollments     = "enrollments"
	AuditTablePermissions     = "enrollment_permissions"
	AuditTableExamSubmissions = "exam_submissions"
	AuditTableContentProgress = "content_progress"
)

// AuditLog represents an audit trail record handed to the audit collaborator.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  json.RawMessage `db:"old_values" json:"old_values,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"new_values,omitempty"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
