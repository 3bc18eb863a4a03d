package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ProgressRepository stores per-student content completion.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// MarkComplete upserts a completed row for (student, content); last write wins.
// It returns true when the row changed state.
func (r *ProgressRepository) MarkComplete(ctx context.Context, studentID, contentID string, at time.Time) (bool, error) {
	const query = `INSERT INTO content_progress (student_id, content_id, completed, updated_at)
VALUES ($1, $2, TRUE, $3)
ON CONFLICT (student_id, content_id) DO UPDATE SET completed = TRUE, updated_at = EXCLUDED.updated_at
WHERE content_progress.completed = FALSE`
	res, err := r.db.ExecContext(ctx, query, studentID, contentID, at)
	if err != nil {
		return false, fmt.Errorf("mark content complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark content complete rows affected: %w", err)
	}
	return n > 0, nil
}

// CompletedContentIDs returns which of contentIDs the student has completed.
func (r *ProgressRepository) CompletedContentIDs(ctx context.Context, studentID string, contentIDs []string) (map[string]bool, error) {
	completed := make(map[string]bool, len(contentIDs))
	if len(contentIDs) == 0 {
		return completed, nil
	}
	query, args, err := sqlx.In(`SELECT content_id FROM content_progress WHERE student_id = ? AND completed = TRUE AND content_id IN (?)`, studentID, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("build completed contents query: %w", err)
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list completed contents: %w", err)
	}
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}
