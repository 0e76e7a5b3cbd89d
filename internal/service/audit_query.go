package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"audit-trail-service/internal/domain"
)

// EntryFinder runs a filter against the entry store.
type EntryFinder interface {
	Find(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

// AuditQuery composes a filter over stored audit entries. Builder methods
// return the query itself so calls can be chained; the first error raised
// while building is reported by All and Filter.
type AuditQuery struct {
	finder EntryFinder
	filter domain.AuditFilter
	err    error
}

func NewAuditQuery(finder EntryFinder) *AuditQuery {
	return &AuditQuery{finder: finder}
}

// ForSubject narrows to the entries of one record, matching its subject type
// and its encoded primary key.
func (q *AuditQuery) ForSubject(record domain.Record) *AuditQuery {
	key, err := domain.EncodeSubjectKey(record)
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		return q
	}
	subjectType := record.SubjectType()
	q.filter.SubjectType = &subjectType
	q.filter.SubjectKey = &key
	return q
}

// OfType narrows to one subject type, across all records of that type.
func (q *AuditQuery) OfType(subjectType string) *AuditQuery {
	if subjectType != "" {
		q.filter.SubjectType = &subjectType
	}
	return q
}

// OrderNewestFirst orders by happened_at descending, grouped by subject type
// first when groupByType is set. Equal timestamps fall back to id.
func (q *AuditQuery) OrderNewestFirst(groupByType bool) *AuditQuery {
	if groupByType {
		q.filter.Order = domain.OrderTypeThenNewest
	} else {
		q.filter.Order = domain.OrderNewestFirst
	}
	return q
}

func (q *AuditQuery) WithID(id *int64) *AuditQuery {
	q.filter.ID = id
	return q
}

func (q *AuditQuery) HappenedAt(ts *int64) *AuditQuery {
	q.filter.HappenedAt = ts
	return q
}

func (q *AuditQuery) ByActor(actorID *int64) *AuditQuery {
	q.filter.ActorID = actorID
	return q
}

func (q *AuditQuery) OfKind(kind *domain.AuditKind) *AuditQuery {
	if kind != nil && !kind.Valid() && q.err == nil {
		q.err = &domain.ValidationError{Messages: []string{fmt.Sprintf("kind %q is invalid", *kind)}}
	}
	q.filter.Kind = kind
	return q
}

func (q *AuditQuery) SubjectKeyLike(s string) *AuditQuery {
	q.filter.SubjectKeyLike = s
	return q
}

func (q *AuditQuery) ChangesLike(s string) *AuditQuery {
	q.filter.ChangesLike = s
	return q
}

func (q *AuditQuery) Limit(n int) *AuditQuery {
	if n > 0 {
		q.filter.Limit = n
	}
	return q
}

func (q *AuditQuery) Offset(n int) *AuditQuery {
	if n > 0 {
		q.filter.Offset = n
	}
	return q
}

// Filter returns the filter built so far.
func (q *AuditQuery) Filter() (domain.AuditFilter, error) {
	return q.filter, q.err
}

// All runs the query.
func (q *AuditQuery) All(ctx context.Context) ([]*domain.AuditEntry, error) {
	if q.err != nil {
		return nil, q.err
	}
	entries, err := q.finder.Find(ctx, q.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	return entries, nil
}

// SearchParams are the free-form filters of an audit trail search, usually
// taken from a request's query string. Empty fields are ignored.
type SearchParams struct {
	ID          string
	SubjectType string
	HappenedAt  string
	ActorID     string
	Kind        string
	SubjectKey  string
	Changes     string
	GroupByType bool
	Limit       int
	Offset      int
}

// Search builds a query from params, newest entries first.
func Search(finder EntryFinder, params SearchParams) (*AuditQuery, error) {
	var msgs []string

	parseInt := func(name, raw string) *int64 {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("%s must be an integer", name))
			return nil
		}
		return &v
	}

	id := parseInt("id", params.ID)
	happenedAt := parseInt("happened_at", params.HappenedAt)
	actorID := parseInt("actor_id", params.ActorID)

	var kind *domain.AuditKind
	if k := strings.TrimSpace(params.Kind); k != "" {
		ak := domain.AuditKind(k)
		if !ak.Valid() {
			msgs = append(msgs, fmt.Sprintf("kind %q is invalid", k))
		} else {
			kind = &ak
		}
	}

	if len(msgs) > 0 {
		return nil, &domain.ValidationError{Messages: msgs}
	}

	limit := params.Limit
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	return NewAuditQuery(finder).
		OfType(strings.TrimSpace(params.SubjectType)).
		WithID(id).
		HappenedAt(happenedAt).
		ByActor(actorID).
		OfKind(kind).
		SubjectKeyLike(params.SubjectKey).
		ChangesLike(params.Changes).
		OrderNewestFirst(params.GroupByType).
		Limit(limit).
		Offset(params.Offset), nil
}
