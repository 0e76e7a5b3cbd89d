package repository

import (
	"context"
	"sync"
	"testing"

	"audit-trail-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(key string, at int64, kind domain.AuditKind, changes ...domain.Change) *domain.AuditEntry {
	return &domain.AuditEntry{
		SubjectType: "product",
		SubjectKey:  key,
		HappenedAt:  at,
		Kind:        kind,
		Changes:     changes,
	}
}

func TestMemoryAuditEntryRepository_SaveStoresCopy(t *testing.T) {
	repo := NewMemoryAuditEntryRepository()
	ctx := context.Background()

	actor := int64(9)
	entry := newEntry("k", 1, domain.AuditUpdate, domain.Change{Attribute: "name", From: domain.String("a"), To: domain.String("b")})
	entry.ActorID = &actor
	require.NoError(t, repo.Save(ctx, entry))
	assert.Equal(t, int64(1), entry.ID)

	entry.Changes[0].Attribute = "mutated"
	*entry.ActorID = 10

	stored, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "name", stored.Changes[0].Attribute)
	assert.Equal(t, int64(9), *stored.ActorID)

	err = repo.Save(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryAuditEntryRepository_SaveValidates(t *testing.T) {
	repo := NewMemoryAuditEntryRepository()

	err := repo.Save(context.Background(), newEntry("", 1, domain.AuditDelete))
	assert.ErrorIs(t, err, domain.ErrPersistence)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = repo.Save(ctx, newEntry("k", 1, domain.AuditDelete))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, repo.Len())
}

func TestMemoryAuditEntryRepository_ConcurrentSavesGetUniqueIDs(t *testing.T) {
	repo := NewMemoryAuditEntryRepository()

	const n = 50
	var wg sync.WaitGroup
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := newEntry("k", int64(i+1), domain.AuditDelete)
			if err := repo.Save(context.Background(), e); err == nil {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		require.NotZero(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Equal(t, n, repo.Len())
}

func TestMemoryAuditEntryRepository_ChangesLikeSkipsEntriesWithoutChanges(t *testing.T) {
	repo := NewMemoryAuditEntryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newEntry("null", 1, domain.AuditDelete)))
	require.NoError(t, repo.Save(ctx, newEntry("k", 2, domain.AuditInsert,
		domain.Change{Attribute: "name", From: domain.Null(), To: domain.String("Null Widget")})))

	entries, err := repo.Find(ctx, domain.AuditFilter{ChangesLike: "null"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ID)

	entries, err = repo.Find(ctx, domain.AuditFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
