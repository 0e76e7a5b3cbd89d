package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is a persisted domain record that can be audited.
type Record interface {
	// SubjectType names the kind of record, e.g. its table name.
	SubjectType() string
	// Fields returns the declared schema fields in declaration order.
	Fields() []string
	// PrimaryKey returns the primary key column names.
	PrimaryKey() []string
	// Attribute returns the current value of a field.
	Attribute(name string) Value
}

// EncodeSubjectKey serializes the record's primary key as JSON with the
// column names sorted, e.g. {"id":42,"tenant":1}. Reads and writes of the
// audit trail must both go through this function.
func EncodeSubjectKey(r Record) (string, error) {
	if r == nil {
		return "", &ConfigurationError{Reason: "record is nil"}
	}

	cols := r.PrimaryKey()
	if len(cols) == 0 {
		return "", &ConfigurationError{
			SubjectType: r.SubjectType(),
			Reason:      "please provide a primary key definition",
		}
	}

	sorted := make([]string, len(cols))
	copy(sorted, cols)
	sort.Strings(sorted)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range sorted {
		if col == "" {
			return "", &ConfigurationError{SubjectType: r.SubjectType(), Reason: "primary key contains an empty column name"}
		}
		if i > 0 && sorted[i-1] == col {
			return "", &ConfigurationError{SubjectType: r.SubjectType(), Reason: fmt.Sprintf("primary key column %q declared twice", col)}
		}

		v := r.Attribute(col)
		if v.IsNull() || v.IsBlank() {
			return "", &ConfigurationError{
				SubjectType: r.SubjectType(),
				Reason:      fmt.Sprintf("primary key column %q has no value", col),
			}
		}

		name, err := json.Marshal(col)
		if err != nil {
			return "", fmt.Errorf("failed to encode primary key column: %w", err)
		}
		val, err := v.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("failed to encode primary key value: %w", err)
		}

		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.String(), nil
}
