package service

import (
	"context"

	"audit-trail-service/internal/domain"
	"audit-trail-service/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// EntryPublisher forwards committed audit entries to downstream consumers.
type EntryPublisher interface {
	Publish(ctx context.Context, entry *domain.AuditEntry) error
}

// publishCommitted runs after the transaction that saved entry has
// committed. The database row is the durable record, so a failed publish is
// logged and counted but never returned to the caller.
func publishCommitted(ctx context.Context, p EntryPublisher, m *metrics.Metrics, entry *domain.AuditEntry) {
	if p == nil || entry == nil {
		return
	}
	if err := p.Publish(ctx, entry); err != nil {
		m.IncrementPublishFailure()
		log.WithError(err).WithFields(log.Fields{
			"entry_id":     entry.ID,
			"subject_type": entry.SubjectType,
			"kind":         entry.Kind,
		}).Warn("Failed to publish audit trail entry")
	}
}
