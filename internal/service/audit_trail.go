package service

import (
	"context"

	"audit-trail-service/internal/domain"

	log "github.com/sirupsen/logrus"
)

// AuditEntryReader is the read side of the audit entry store.
type AuditEntryReader interface {
	EntryFinder
	GetByID(ctx context.Context, id int64) (*domain.AuditEntry, error)
	CountByKind(ctx context.Context, subjectType string, kinds []domain.AuditKind) (map[domain.AuditKind]int64, error)
}

// AuditTrailService answers read-only queries over all audit entries.
type AuditTrailService struct {
	reader AuditEntryReader
}

func NewAuditTrailService(reader AuditEntryReader) *AuditTrailService {
	return &AuditTrailService{reader: reader}
}

// Search returns one page of entries matching params, newest first.
func (s *AuditTrailService) Search(ctx context.Context, params SearchParams) ([]*domain.AuditEntry, error) {
	if params.Limit <= 0 {
		params.Limit = domain.MaxListLimit
	}

	q, err := Search(s.reader, params)
	if err != nil {
		return nil, err
	}

	entries, err := q.All(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to search audit trail")
		return nil, err
	}
	return entries, nil
}

// Export walks every entry matching params page by page and hands each one
// to fn. It stops at the first error fn returns.
func (s *AuditTrailService) Export(ctx context.Context, params SearchParams, fn func(*domain.AuditEntry) error) error {
	params.Limit = domain.MaxListLimit
	params.Offset = 0

	for {
		entries, err := s.Search(ctx, params)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(entries) < params.Limit {
			return nil
		}
		params.Offset += len(entries)
	}
}

func (s *AuditTrailService) GetEntry(ctx context.Context, id int64) (*domain.AuditEntry, error) {
	if id <= 0 {
		return nil, domain.ErrEntryNotFound
	}
	return s.reader.GetByID(ctx, id)
}

// Stats counts entries per kind, for one subject type or for all of them.
func (s *AuditTrailService) Stats(ctx context.Context, subjectType string) (map[domain.AuditKind]int64, error) {
	return s.reader.CountByKind(ctx, subjectType, domain.AuditKinds())
}
