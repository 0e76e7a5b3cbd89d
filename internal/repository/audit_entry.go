package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"audit-trail-service/internal/domain"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const auditEntryColumns = `id, subject_type, subject_key, happened_at, actor_id, kind, changes`

// postgresAuditEntryRepository is the append-only store of audit trail
// entries. It has no update path; the table also rejects UPDATE statements.
type postgresAuditEntryRepository struct {
	db DBTX
}

func NewPostgresAuditEntryRepository(db DBTX) *postgresAuditEntryRepository {
	return &postgresAuditEntryRepository{db: db}
}

// Save inserts entry and assigns its id.
func (r *postgresAuditEntryRepository) Save(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return errors.New("audit trail entry is nil")
	}
	if entry.IsPersisted() {
		return &domain.InvalidOperationError{EntryID: entry.ID}
	}
	if msgs := entry.Validate(); len(msgs) > 0 {
		return &domain.PersistenceError{Err: &domain.ValidationError{Messages: msgs}}
	}

	data, err := domain.EncodeChanges(entry.Changes)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `INSERT INTO audit_trail_entries (subject_type, subject_key, happened_at, actor_id, kind, changes)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		entry.SubjectType,
		entry.SubjectKey,
		entry.HappenedAt,
		entry.ActorID,
		string(entry.Kind),
		sql.NullString{String: string(data), Valid: data != nil},
	).Scan(&id)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"subject_type": entry.SubjectType,
			"subject_key":  entry.SubjectKey,
			"kind":         entry.Kind,
		}).Error("Failed to insert audit trail entry")
		return fmt.Errorf("failed to insert audit trail entry: %w", err)
	}

	entry.ID = id
	return nil
}

// likePattern escapes LIKE wildcards in s and wraps it for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Find returns the entries matching filter.
func (r *postgresAuditEntryRepository) Find(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var query strings.Builder
	args := []interface{}{}
	argPos := 1

	query.WriteString(`SELECT ` + auditEntryColumns + ` FROM audit_trail_entries WHERE 1=1`)

	if filter.ID != nil {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argPos))
		args = append(args, *filter.ID)
		argPos++
	}
	if filter.SubjectType != nil {
		query.WriteString(fmt.Sprintf(" AND subject_type = $%d", argPos))
		args = append(args, *filter.SubjectType)
		argPos++
	}
	if filter.SubjectKey != nil {
		query.WriteString(fmt.Sprintf(" AND subject_key = $%d", argPos))
		args = append(args, *filter.SubjectKey)
		argPos++
	}
	if filter.HappenedAt != nil {
		query.WriteString(fmt.Sprintf(" AND happened_at = $%d", argPos))
		args = append(args, *filter.HappenedAt)
		argPos++
	}
	if filter.ActorID != nil {
		query.WriteString(fmt.Sprintf(" AND actor_id = $%d", argPos))
		args = append(args, *filter.ActorID)
		argPos++
	}
	if filter.Kind != nil {
		query.WriteString(fmt.Sprintf(" AND kind = $%d", argPos))
		args = append(args, string(*filter.Kind))
		argPos++
	}
	if filter.SubjectKeyLike != "" {
		query.WriteString(fmt.Sprintf(" AND subject_key ILIKE $%d", argPos))
		args = append(args, likePattern(filter.SubjectKeyLike))
		argPos++
	}
	if filter.ChangesLike != "" {
		query.WriteString(fmt.Sprintf(" AND changes ILIKE $%d", argPos))
		args = append(args, likePattern(filter.ChangesLike))
		argPos++
	}

	switch filter.Order {
	case domain.OrderTypeThenNewest:
		query.WriteString(" ORDER BY subject_type ASC, happened_at DESC, id DESC")
	case domain.OrderNewestFirst:
		query.WriteString(" ORDER BY happened_at DESC, id DESC")
	default:
		query.WriteString(" ORDER BY id ASC")
	}

	if filter.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", argPos))
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", argPos))
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		log.WithError(err).Error("Failed to query audit trail entries")
		return nil, fmt.Errorf("failed to query audit trail entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			kind    string
			actorID sql.NullInt64
			changes sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.SubjectType,
			&entry.SubjectKey,
			&entry.HappenedAt,
			&actorID,
			&kind,
			&changes,
		); err != nil {
			log.WithError(err).Error("Failed to scan audit trail entry row")
			return nil, fmt.Errorf("failed to scan audit trail entry: %w", err)
		}

		entry.Kind = domain.AuditKind(kind)
		if actorID.Valid {
			id := actorID.Int64
			entry.ActorID = &id
		}
		if changes.Valid {
			entry.Changes, err = domain.DecodeChanges([]byte(changes.String))
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", entry.ID, err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over audit trail entries: %w", err)
	}

	return entries, nil
}

// GetByID returns one entry or domain.ErrEntryNotFound.
func (r *postgresAuditEntryRepository) GetByID(ctx context.Context, id int64) (*domain.AuditEntry, error) {
	entries, err := r.Find(ctx, domain.AuditFilter{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	return entries[0], nil
}

// CountByKind returns the number of entries of each kind for subjectType,
// or for every subject type when it is empty.
func (r *postgresAuditEntryRepository) CountByKind(ctx context.Context, subjectType string, kinds []domain.AuditKind) (map[domain.AuditKind]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	query := `SELECT kind, COUNT(*) FROM audit_trail_entries
	          WHERE kind = ANY($1) AND ($2 = '' OR subject_type = $2)
	          GROUP BY kind`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(names), subjectType)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit trail entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.AuditKind]int64, len(kinds))
	for _, k := range kinds {
		counts[k] = 0
	}
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan audit trail count: %w", err)
		}
		counts[domain.AuditKind(kind)] = n
	}
	return counts, rows.Err()
}
