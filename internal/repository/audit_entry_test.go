package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"audit-trail-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumns = []string{"id", "subject_type", "subject_key", "happened_at", "actor_id", "kind", "changes"}

func newAuditMock(t *testing.T) (*postgresAuditEntryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresAuditEntryRepository(db), mockDB
}

func TestAuditEntryRepository_Save(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	actor := int64(7)
	entry := &domain.AuditEntry{
		SubjectType: "product",
		SubjectKey:  `{"id":"p-1"}`,
		HappenedAt:  1715968637,
		ActorID:     &actor,
		Kind:        domain.AuditUpdate,
		Changes:     []domain.Change{{Attribute: "price_coins", From: domain.Int(100), To: domain.Int(120)}},
	}

	mockDB.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_trail_entries`)).
		WithArgs("product", `{"id":"p-1"}`, int64(1715968637), int64(7), "update",
			`[{"attr":"price_coins","from":100,"to":120}]`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Save(context.Background(), entry))
	assert.Equal(t, int64(42), entry.ID)
	assert.True(t, entry.IsPersisted())
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_SaveWithoutChangesStoresNull(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	mockDB.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_trail_entries`)).
		WithArgs("product", `{"id":"p-1"}`, int64(10), nil, "delete", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	err := repo.Save(context.Background(), &domain.AuditEntry{
		SubjectType: "product",
		SubjectKey:  `{"id":"p-1"}`,
		HappenedAt:  10,
		Kind:        domain.AuditDelete,
	})
	require.NoError(t, err)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_SaveRejectsPersistedEntry(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	err := repo.Save(context.Background(), &domain.AuditEntry{ID: 3, SubjectType: "product"})

	var opErr *domain.InvalidOperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, int64(3), opErr.EntryID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_SaveRejectsInvalidEntry(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	err := repo.Save(context.Background(), &domain.AuditEntry{
		SubjectKey: `{"id":"p-1"}`,
		HappenedAt: 10,
		Kind:       domain.AuditUpdate,
	})

	assert.ErrorIs(t, err, domain.ErrPersistence)
	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Messages, "subject type cannot be blank")
	assert.Contains(t, validationErr.Messages, "update entries must contain at least one change")

	assert.Error(t, repo.Save(context.Background(), nil))
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_SaveWrapsDriverError(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	driverErr := errors.New("connection reset")
	mockDB.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_trail_entries`)).WillReturnError(driverErr)

	entry := &domain.AuditEntry{SubjectType: "product", SubjectKey: "k", HappenedAt: 1, Kind: domain.AuditDelete}
	err := repo.Save(context.Background(), entry)

	assert.ErrorIs(t, err, driverErr)
	assert.False(t, entry.IsPersisted())
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_FindBuildsQuery(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	id := int64(5)
	subjectType := "product"
	key := `{"id":"p-1"}`
	at := int64(1700000000)
	actor := int64(7)
	kind := domain.AuditUpdate

	query := `SELECT id, subject_type, subject_key, happened_at, actor_id, kind, changes FROM audit_trail_entries WHERE 1=1` +
		` AND id = $1 AND subject_type = $2 AND subject_key = $3 AND happened_at = $4 AND actor_id = $5 AND kind = $6` +
		` AND subject_key ILIKE $7 AND changes ILIKE $8` +
		` ORDER BY subject_type ASC, happened_at DESC, id DESC LIMIT $9 OFFSET $10`

	mockDB.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(id, subjectType, key, at, actor, "update", `%p-1%`, `%50\%\_off%`, 20, 40).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	entries, err := repo.Find(context.Background(), domain.AuditFilter{
		ID:             &id,
		SubjectType:    &subjectType,
		SubjectKey:     &key,
		HappenedAt:     &at,
		ActorID:        &actor,
		Kind:           &kind,
		SubjectKeyLike: "p-1",
		ChangesLike:    "50%_off",
		Order:          domain.OrderTypeThenNewest,
		Limit:          20,
		Offset:         40,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_FindOrdering(t *testing.T) {
	tests := []struct {
		name  string
		order domain.AuditOrder
		want  string
	}{
		{"insertion", domain.OrderInsertion, " ORDER BY id ASC"},
		{"newest first", domain.OrderNewestFirst, " ORDER BY happened_at DESC, id DESC"},
		{"type then newest", domain.OrderTypeThenNewest, " ORDER BY subject_type ASC, happened_at DESC, id DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mockDB := newAuditMock(t)

			mockDB.ExpectQuery(regexp.QuoteMeta(`FROM audit_trail_entries WHERE 1=1`+tt.want) + `$`).
				WillReturnRows(sqlmock.NewRows(entryColumns))

			_, err := repo.Find(context.Background(), domain.AuditFilter{Order: tt.order})
			require.NoError(t, err)
			require.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}

func TestAuditEntryRepository_FindScansRows(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	mockDB.ExpectQuery(regexp.QuoteMeta(`FROM audit_trail_entries`)).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(int64(2), "product", `{"id":"p-1"}`, int64(200), int64(7), "update",
				`[{"attr":"price_coins","from":100,"to":120.5}]`).
			AddRow(int64(1), "product", `{"id":"p-1"}`, int64(100), nil, "delete", nil))

	entries, err := repo.Find(context.Background(), domain.AuditFilter{Order: domain.OrderNewestFirst})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, int64(2), first.ID)
	assert.Equal(t, domain.AuditUpdate, first.Kind)
	require.NotNil(t, first.ActorID)
	assert.Equal(t, int64(7), *first.ActorID)
	require.Len(t, first.Changes, 1)
	assert.Equal(t, "price_coins", first.Changes[0].Attribute)
	assert.Equal(t, domain.IntValue, first.Changes[0].From.Kind())
	assert.Equal(t, domain.FloatValue, first.Changes[0].To.Kind())

	second := entries[1]
	assert.Nil(t, second.ActorID)
	assert.Nil(t, second.Changes)
	assert.Equal(t, domain.AuditDelete, second.Kind)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_FindRejectsCorruptChanges(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	mockDB.ExpectQuery(regexp.QuoteMeta(`FROM audit_trail_entries`)).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(int64(9), "product", "k", int64(1), nil, "update", `not json`))

	_, err := repo.Find(context.Background(), domain.AuditFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 9")
}

func TestAuditEntryRepository_GetByID(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	mockDB.ExpectQuery(regexp.QuoteMeta(`AND id = $1 ORDER BY id ASC LIMIT $2`)).
		WithArgs(int64(4), 1).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(int64(4), "product", "k", int64(1), nil, "delete", nil))
	mockDB.ExpectQuery(regexp.QuoteMeta(`AND id = $1 ORDER BY id ASC LIMIT $2`)).
		WithArgs(int64(5), 1).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	entry, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.ID)

	_, err = repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAuditEntryRepository_CountByKind(t *testing.T) {
	repo, mockDB := newAuditMock(t)

	mockDB.ExpectQuery(regexp.QuoteMeta(`SELECT kind, COUNT(*) FROM audit_trail_entries`)).
		WithArgs(pq.Array([]string{"insert", "update", "delete"}), "product").
		WillReturnRows(sqlmock.NewRows([]string{"kind", "count"}).
			AddRow("insert", int64(4)).
			AddRow("delete", int64(1)))

	counts, err := repo.CountByKind(context.Background(), "product", domain.AuditKinds())
	require.NoError(t, err)
	assert.Equal(t, map[domain.AuditKind]int64{
		domain.AuditInsert: 4,
		domain.AuditUpdate: 0,
		domain.AuditDelete: 1,
	}, counts)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%abc%`, likePattern("abc"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\tmp%`, likePattern(`c:\tmp`))
}
