package audit

import (
	"context"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
	"github.com/mzalewski/secadmin-api/internal/service/policy"
	"github.com/mzalewski/secadmin-api/pkg/logger"
	"github.com/mzalewski/secadmin-api/pkg/metrics"
)

// Service appends security-relevant events to the audit log. Appends are
// best-effort: a failing audit write is logged locally and swallowed, never
// escalated into an authentication failure.
type Service struct {
	repo      repository.AuditRepository
	policySvc *policy.Service
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(repo repository.AuditRepository, policySvc *policy.Service, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		policySvc: policySvc,
		log:       log,
		metrics:   m,
	}
}

// Append records an event, gated by the policy's audit flag. Actor may be
// model.AuditActorUnknown for pre-authentication events.
func (s *Service) Append(ctx context.Context, actor, action, description string) {
	p, err := s.policySvc.Get(ctx)
	if err != nil {
		s.log.Error(err, "audit append skipped, policy unavailable", "action", action)
		s.metrics.AuditAppends.WithLabelValues("failed").Inc()
		return
	}
	if !p.EnableAuditLog {
		s.metrics.AuditAppends.WithLabelValues("disabled").Inc()
		return
	}

	entry := &model.AuditLog{
		Username:    actor,
		Action:      action,
		Description: description,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error(err, "audit append failed", "action", action, "actor", actor)
		s.metrics.AuditAppends.WithLabelValues("failed").Inc()
		return
	}
	s.metrics.AuditAppends.WithLabelValues("ok").Inc()
}

// List returns audit entries matching the filter plus the unpaginated total.
func (s *Service) List(ctx context.Context, filter *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	return s.repo.List(ctx, filter)
}

// Actions returns the distinct action labels seen so far, for filter
// dropdowns.
func (s *Service) Actions(ctx context.Context) ([]string, error) {
	return s.repo.DistinctActions(ctx)
}
