package domain

import "fmt"

// AuditKind is the kind of mutation an entry records.
type AuditKind string

const (
	AuditInsert AuditKind = "insert"
	AuditUpdate AuditKind = "update"
	AuditDelete AuditKind = "delete"
)

const (
	maxSubjectTypeLength = 255
	maxSubjectKeyLength  = 255
)

// AuditKinds returns all valid audit kinds.
func AuditKinds() []AuditKind {
	return []AuditKind{AuditInsert, AuditUpdate, AuditDelete}
}

func (k AuditKind) Valid() bool {
	switch k {
	case AuditInsert, AuditUpdate, AuditDelete:
		return true
	}
	return false
}

// AuditEntry is one immutable audit trail record. ID is zero until the
// store assigns it.
type AuditEntry struct {
	ID          int64     `json:"id"`
	SubjectType string    `json:"subject_type"`
	SubjectKey  string    `json:"subject_key"`
	HappenedAt  int64     `json:"happened_at"`
	ActorID     *int64    `json:"actor_id"`
	Kind        AuditKind `json:"kind"`
	Changes     []Change  `json:"changes"`
}

func (e *AuditEntry) IsPersisted() bool { return e.ID != 0 }

func (e *AuditEntry) HasChanges() bool { return len(e.Changes) > 0 }

// Validate returns the list of rule violations, empty when the entry may be
// stored.
func (e *AuditEntry) Validate() []string {
	var msgs []string

	switch {
	case e.SubjectType == "":
		msgs = append(msgs, "subject type cannot be blank")
	case len(e.SubjectType) > maxSubjectTypeLength:
		msgs = append(msgs, fmt.Sprintf("subject type should contain at most %d characters", maxSubjectTypeLength))
	}

	switch {
	case e.SubjectKey == "":
		msgs = append(msgs, "subject key cannot be blank")
	case len(e.SubjectKey) > maxSubjectKeyLength:
		msgs = append(msgs, fmt.Sprintf("subject key should contain at most %d characters", maxSubjectKeyLength))
	}

	if e.HappenedAt <= 0 {
		msgs = append(msgs, "happened at must be a positive unix timestamp")
	}

	if !e.Kind.Valid() {
		msgs = append(msgs, fmt.Sprintf("kind %q is invalid", e.Kind))
	}

	if e.Kind == AuditUpdate && !e.HasChanges() {
		msgs = append(msgs, "update entries must contain at least one change")
	}

	for i, c := range e.Changes {
		if c.Attribute == "" {
			msgs = append(msgs, fmt.Sprintf("change %d has no attribute", i))
		}
	}

	return msgs
}

// AuditOrder selects the ordering of a query result.
type AuditOrder int

const (
	// OrderInsertion orders by id ascending.
	OrderInsertion AuditOrder = iota
	// OrderNewestFirst orders by happened_at descending.
	OrderNewestFirst
	// OrderTypeThenNewest orders by subject_type ascending, then happened_at
	// descending.
	OrderTypeThenNewest
)

// AuditFilter describes a query over stored entries. Nil pointers and empty
// strings do not narrow the result.
type AuditFilter struct {
	ID          *int64
	SubjectType *string
	SubjectKey  *string
	HappenedAt  *int64
	ActorID     *int64
	Kind        *AuditKind

	// Substring matches for free-text search.
	SubjectKeyLike string
	ChangesLike    string

	Order  AuditOrder
	Limit  int
	Offset int
}
