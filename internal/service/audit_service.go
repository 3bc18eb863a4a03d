package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-progression-api/internal/dto"
	"github.com/noah-isme/lms-progression-api/internal/models"
	"github.com/noah-isme/lms-progression-api/pkg/jobs"
)

// AuditJobType tags audit delivery jobs on the queue.
const AuditJobType = "audit_log"

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditEmitter interface {
	Emit(ctx context.Context, event dto.AuditEvent)
}

type discardAudit struct{}

func (discardAudit) Emit(context.Context, dto.AuditEvent) {}

// AuditService hands mutation events to the audit collaborator. Delivery is
// best-effort: failures are logged and never surface to the caller.
type AuditService struct {
	repo   auditLogger
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs an AuditService delivering synchronously until a queue is attached.
func NewAuditService(repo auditLogger, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// UseQueue routes subsequent events through q. The queue handler should be Deliver.
func (s *AuditService) UseQueue(q *jobs.Queue) {
	s.queue = q
}

// Emit converts the event into an audit log and delivers it.
func (s *AuditService) Emit(ctx context.Context, event dto.AuditEvent) {
	if s == nil || s.repo == nil {
		return
	}
	entry, err := buildAuditLog(event)
	if err != nil {
		s.logger.Warn("failed to encode audit event", zap.String("table", event.Table), zap.String("record_id", event.RecordID), zap.Error(err))
		return
	}

	if s.queue.Started() {
		job := jobs.Job{ID: entry.ID, Type: AuditJobType, Payload: entry}
		err := s.queue.TryEnqueue(job)
		if err == nil {
			return
		}
		s.logger.Warn("audit queue unavailable, delivering inline", zap.String("record_id", event.RecordID), zap.Error(err))
	}

	if err := s.repo.CreateAuditLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("table", event.Table), zap.String("record_id", event.RecordID), zap.Error(err))
	}
}

// Deliver is the jobs.Handler for queued audit events.
func (s *AuditService) Deliver(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit job payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.repo.CreateAuditLog(ctx, entry)
}

func buildAuditLog(event dto.AuditEvent) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		ID:       uuid.NewString(),
		Action:   event.Action,
		Resource: event.Table,
	}
	if event.RecordID != "" {
		id := event.RecordID
		entry.ResourceID = &id
	}
	if event.ActorID != "" {
		actor := event.ActorID
		entry.UserID = &actor
	}

	var err error
	if entry.OldValues, err = marshalAuditValues(event.OldValues); err != nil {
		return nil, fmt.Errorf("old values: %w", err)
	}
	if entry.NewValues, err = marshalAuditValues(event.NewValues); err != nil {
		return nil, fmt.Errorf("new values: %w", err)
	}
	if entry.Metadata, err = marshalAuditValues(event.Metadata); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return entry, nil
}

func marshalAuditValues(values map[string]interface{}) (json.RawMessage, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return json.Marshal(values)
}
