package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records mutations. Entries go through a background queue when one is
// attached and running, otherwise they are written inline.
type AuditService struct {
	repo   auditRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// AttachQueue routes future entries through q.
func (s *AuditService) AttachQueue(q *jobs.Queue) {
	s.queue = q
}

// Record stores an audit entry for actor. Failures are logged, never returned.
func (s *AuditService) Record(ctx context.Context, actor models.Actor, action, resource, resourceID string, payload interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry, err := s.build(actor, action, resource, resourceID, payload)
	if err != nil {
		s.logger.Warn("audit entry dropped", zap.String("action", action), zap.Error(err))
		return
	}

	if s.queue != nil && s.queue.Running() {
		enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := s.queue.Enqueue(enqueueCtx, jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry}); err == nil {
			return
		}
		s.logger.Warn("audit queue unavailable, writing inline", zap.String("action", action))
	}
	if err := s.repo.CreateAuditLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// Handle is the queue handler persisting a queued entry.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return errors.New("audit job payload must be *models.AuditLog")
	}
	return s.repo.CreateAuditLog(ctx, entry)
}

func (s *AuditService) build(actor models.Actor, action, resource, resourceID string, payload interface{}) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		Resource:  resource,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal audit payload: %w", err)
		}
		entry.NewValues = data
	}
	return entry, nil
}
