package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerRow is an audited record with a composite primary key.
type ledgerRow struct {
	tenant int64
	id     int64
	pk     []string
	values map[string]Value
}

func (r *ledgerRow) SubjectType() string { return "ledger_row" }

func (r *ledgerRow) Fields() []string { return []string{"tenant", "id", "amount", "memo"} }

func (r *ledgerRow) PrimaryKey() []string { return r.pk }

func (r *ledgerRow) Attribute(name string) Value {
	switch name {
	case "tenant":
		return Int(r.tenant)
	case "id":
		return Int(r.id)
	}
	if v, ok := r.values[name]; ok {
		return v
	}
	return Null()
}

func TestEncodeSubjectKey_SortsColumns(t *testing.T) {
	row := &ledgerRow{tenant: 1, id: 42, pk: []string{"tenant", "id"}}

	key, err := EncodeSubjectKey(row)
	require.NoError(t, err)
	assert.Equal(t, `{"id":42,"tenant":1}`, key)

	row.pk = []string{"id", "tenant"}
	again, err := EncodeSubjectKey(row)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestEncodeSubjectKey_StringKey(t *testing.T) {
	p := &Product{ID: "6f1c1f0e-1111-4a5b-9c3d-222233334444"}

	key, err := EncodeSubjectKey(p)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"6f1c1f0e-1111-4a5b-9c3d-222233334444"}`, key)
}

func TestEncodeSubjectKey_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"nil record", nil},
		{"no primary key", &ledgerRow{tenant: 1, id: 1}},
		{"empty column", &ledgerRow{tenant: 1, id: 1, pk: []string{""}}},
		{"duplicate column", &ledgerRow{tenant: 1, id: 1, pk: []string{"id", "id"}}},
		{"null key value", &ledgerRow{tenant: 1, id: 1, pk: []string{"memo"}}},
		{"blank key value", &Product{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeSubjectKey(tt.rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func validEntry() *AuditEntry {
	return &AuditEntry{
		SubjectType: "product",
		SubjectKey:  `{"id":"p-1"}`,
		HappenedAt:  1700000000,
		Kind:        AuditUpdate,
		Changes:     []Change{{Attribute: "name", From: String("a"), To: String("b")}},
	}
}

func TestAuditEntry_Validate(t *testing.T) {
	assert.Empty(t, validEntry().Validate())

	tests := []struct {
		name   string
		mutate func(e *AuditEntry)
		want   string
	}{
		{"blank subject type", func(e *AuditEntry) { e.SubjectType = "" }, "subject type cannot be blank"},
		{"long subject type", func(e *AuditEntry) { e.SubjectType = strings.Repeat("x", 256) }, "subject type should contain at most 255 characters"},
		{"blank subject key", func(e *AuditEntry) { e.SubjectKey = "" }, "subject key cannot be blank"},
		{"long subject key", func(e *AuditEntry) { e.SubjectKey = strings.Repeat("k", 256) }, "subject key should contain at most 255 characters"},
		{"missing timestamp", func(e *AuditEntry) { e.HappenedAt = 0 }, "happened at must be a positive unix timestamp"},
		{"unknown kind", func(e *AuditEntry) { e.Kind = "upsert" }, `kind "upsert" is invalid`},
		{"update without changes", func(e *AuditEntry) { e.Changes = nil }, "update entries must contain at least one change"},
		{"change without attribute", func(e *AuditEntry) { e.Changes[0].Attribute = "" }, "change 0 has no attribute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(e)
			assert.Contains(t, e.Validate(), tt.want)
		})
	}
}

func TestAuditEntry_DeleteWithoutChangesIsValid(t *testing.T) {
	e := validEntry()
	e.Kind = AuditDelete
	e.Changes = nil

	assert.Empty(t, e.Validate())
	assert.False(t, e.HasChanges())
	assert.False(t, e.IsPersisted())
}

func TestAuditKind_Valid(t *testing.T) {
	for _, k := range AuditKinds() {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, AuditKind("").Valid())
	assert.False(t, AuditKind("INSERT").Valid())
}

func TestPersistenceError_Matching(t *testing.T) {
	err := error(&PersistenceError{Err: &ValidationError{Messages: []string{"subject type cannot be blank", "kind \"x\" is invalid"}}})

	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, `error while saving audit trail entry: subject type cannot be blank, kind "x" is invalid`, err.Error())

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Len(t, validationErr.Messages, 2)
}

func TestInvalidOperationError_Matching(t *testing.T) {
	err := error(&InvalidOperationError{EntryID: 7})

	assert.True(t, errors.Is(err, ErrInvalidOperation))
	assert.Contains(t, err.Error(), "entry 7")
}
