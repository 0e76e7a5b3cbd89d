package domain

import (
	"encoding/json"
	"fmt"
)

// Change is a single field delta of an audit entry.
type Change struct {
	Attribute string `json:"attr"`
	From      Value  `json:"from"`
	To        Value  `json:"to"`
}

// ChangeSet accumulates the changes of one mutation in evaluation order.
type ChangeSet struct {
	changes []Change
}

// Add appends a change. Callers are expected to have filtered no-op deltas
// and ignored attributes already.
func (s *ChangeSet) Add(attribute string, from, to Value) {
	s.changes = append(s.changes, Change{Attribute: attribute, From: from, To: to})
}

func (s *ChangeSet) IsEmpty() bool { return len(s.changes) == 0 }

func (s *ChangeSet) Len() int { return len(s.changes) }

// Changes returns a copy of the accumulated changes.
func (s *ChangeSet) Changes() []Change {
	if len(s.changes) == 0 {
		return nil
	}
	out := make([]Change, len(s.changes))
	copy(out, s.changes)
	return out
}

// EncodeChanges serializes changes for storage. An empty list encodes to nil,
// which is stored as NULL.
func EncodeChanges(changes []Change) ([]byte, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal changes: %w", err)
	}
	return data, nil
}

// DecodeChanges is the inverse of EncodeChanges.
func DecodeChanges(data []byte) ([]Change, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var changes []Change
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
	}
	if len(changes) == 0 {
		return nil, nil
	}
	return changes, nil
}
