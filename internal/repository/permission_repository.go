package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-progression-api/internal/models"
)

const permissionColumns = `id, student_id, granted_by, reason, allow_multiple_courses, specific_courses, max_concurrent_courses, expires_at, is_active, revoked_at, revoked_by, revoke_reason, created_at`

// PermissionRepository stores time-bounded enrollment permissions.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository constructs the repository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create persists a new grant.
func (r *PermissionRepository) Create(ctx context.Context, grant *models.PermissionGrant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}
	if grant.SpecificCourses == nil {
		grant.SpecificCourses = []string{}
	}
	const query = `INSERT INTO enrollment_permissions (id, student_id, granted_by, reason, allow_multiple_courses, specific_courses, max_concurrent_courses, expires_at, is_active, created_at)
        VALUES (:id, :student_id, :granted_by, :reason, :allow_multiple_courses, :specific_courses, :max_concurrent_courses, :expires_at, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("create permission: %w", err)
	}
	return nil
}

// FindByID returns a grant by its ID.
func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*models.PermissionGrant, error) {
	query := `SELECT ` + permissionColumns + ` FROM enrollment_permissions WHERE id = $1`
	var grant models.PermissionGrant
	if err := r.db.GetContext(ctx, &grant, query, id); err != nil {
		return nil, err
	}
	return &grant, nil
}

// ListInEffect returns grants that are active and unexpired at now.
func (r *PermissionRepository) ListInEffect(ctx context.Context, studentID string, now time.Time) ([]models.PermissionGrant, error) {
	query := `SELECT ` + permissionColumns + ` FROM enrollment_permissions
WHERE student_id = $1 AND is_active = TRUE AND (expires_at IS NULL OR expires_at > $2)
ORDER BY created_at DESC`
	var grants []models.PermissionGrant
	if err := r.db.SelectContext(ctx, &grants, query, studentID, now); err != nil {
		return nil, fmt.Errorf("list permissions in effect: %w", err)
	}
	return grants, nil
}

// ListByStudent returns every grant ever issued to the student.
func (r *PermissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PermissionGrant, error) {
	query := `SELECT ` + permissionColumns + ` FROM enrollment_permissions WHERE student_id = $1 ORDER BY created_at DESC`
	var grants []models.PermissionGrant
	if err := r.db.SelectContext(ctx, &grants, query, studentID); err != nil {
		return nil, fmt.Errorf("list student permissions: %w", err)
	}
	return grants, nil
}

// Revoke deactivates an active grant and records who revoked it and why.
func (r *PermissionRepository) Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error {
	const query = `UPDATE enrollment_permissions
SET is_active = FALSE, revoked_at = $2, revoked_by = $3, revoke_reason = $4
WHERE id = $1 AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, at, revokedBy, reason)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	return requireAffected(res, "revoke permission")
}
