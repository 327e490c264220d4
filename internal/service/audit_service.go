package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/repository"
)

type AuditService struct {
	repo *repository.AuditRepo
	log  *zap.Logger
}

func NewAuditService(repo *repository.AuditRepo, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record writes an audit entry. A failed write is logged and otherwise
// ignored so it never fails the audited action.
func (s *AuditService) Record(ctx context.Context, actorID, action, entity, entityID, detail string) {
	entry := &models.AuditLog{
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, entity string, skip, limit int) ([]models.AuditLog, int, error) {
	return s.repo.List(ctx, entity, skip, limit)
}
