package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"audit-trail-service/internal/domain"
)

// memoryAuditEntryRepository keeps entries in process memory. It follows the
// same rules as the Postgres store.
type memoryAuditEntryRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
	nextID  int64
}

func NewMemoryAuditEntryRepository() *memoryAuditEntryRepository {
	return &memoryAuditEntryRepository{nextID: 1}
}

func (r *memoryAuditEntryRepository) Save(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return errors.New("audit trail entry is nil")
	}
	if entry.IsPersisted() {
		return &domain.InvalidOperationError{EntryID: entry.ID}
	}
	if msgs := entry.Validate(); len(msgs) > 0 {
		return &domain.PersistenceError{Err: &domain.ValidationError{Messages: msgs}}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, cloneEntry(entry))
	return nil
}

func cloneEntry(e *domain.AuditEntry) domain.AuditEntry {
	cp := *e
	if e.ActorID != nil {
		id := *e.ActorID
		cp.ActorID = &id
	}
	if e.Changes != nil {
		cp.Changes = append([]domain.Change(nil), e.Changes...)
	}
	return cp
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matches(e *domain.AuditEntry, f domain.AuditFilter) bool {
	if f.ID != nil && e.ID != *f.ID {
		return false
	}
	if f.SubjectType != nil && e.SubjectType != *f.SubjectType {
		return false
	}
	if f.SubjectKey != nil && e.SubjectKey != *f.SubjectKey {
		return false
	}
	if f.HappenedAt != nil && e.HappenedAt != *f.HappenedAt {
		return false
	}
	if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
		return false
	}
	if f.Kind != nil && e.Kind != *f.Kind {
		return false
	}
	if f.SubjectKeyLike != "" && !containsFold(e.SubjectKey, f.SubjectKeyLike) {
		return false
	}
	if f.ChangesLike != "" {
		// entries without changes are stored as NULL and never match
		data, err := domain.EncodeChanges(e.Changes)
		if err != nil || data == nil || !containsFold(string(data), f.ChangesLike) {
			return false
		}
	}
	return true
}

func (r *memoryAuditEntryRepository) Find(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	result := make([]*domain.AuditEntry, 0)
	for i := range r.entries {
		if matches(&r.entries[i], filter) {
			cp := cloneEntry(&r.entries[i])
			result = append(result, &cp)
		}
	}
	r.mu.RUnlock()

	switch filter.Order {
	case domain.OrderTypeThenNewest:
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i], result[j]
			if a.SubjectType != b.SubjectType {
				return a.SubjectType < b.SubjectType
			}
			if a.HappenedAt != b.HappenedAt {
				return a.HappenedAt > b.HappenedAt
			}
			return a.ID > b.ID
		})
	case domain.OrderNewestFirst:
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i], result[j]
			if a.HappenedAt != b.HappenedAt {
				return a.HappenedAt > b.HappenedAt
			}
			return a.ID > b.ID
		})
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.AuditEntry{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *memoryAuditEntryRepository) GetByID(ctx context.Context, id int64) (*domain.AuditEntry, error) {
	entries, err := r.Find(ctx, domain.AuditFilter{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	return entries[0], nil
}

func (r *memoryAuditEntryRepository) CountByKind(ctx context.Context, subjectType string, kinds []domain.AuditKind) (map[domain.AuditKind]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[domain.AuditKind]int64, len(kinds))
	for _, k := range kinds {
		counts[k] = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if subjectType != "" && e.SubjectType != subjectType {
			continue
		}
		if _, ok := counts[e.Kind]; ok {
			counts[e.Kind]++
		}
	}
	return counts, nil
}

// Len returns the number of stored entries.
func (r *memoryAuditEntryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
