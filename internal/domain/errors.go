package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration    = errors.New("audit configuration error")
	ErrPersistence      = errors.New("audit persistence error")
	ErrInvalidOperation = errors.New("invalid audit operation")
	ErrEntryNotFound    = errors.New("audit trail entry not found")
)

// ConfigurationError reports an audited record type that cannot be audited,
// typically because it has no usable primary key.
type ConfigurationError struct {
	SubjectType string
	Reason      string
}

func (e *ConfigurationError) Error() string {
	if e.SubjectType == "" {
		return fmt.Sprintf("audit configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("audit configuration error for %s: %s", e.SubjectType, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ValidationError lists the messages of an entry that failed validation.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// PersistenceError is returned when an entry could not be saved because it
// failed validation. It is never transient.
type PersistenceError struct {
	Err *ValidationError
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("error while saving audit trail entry: %s", e.Err.Error())
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// InvalidOperationError signals an attempt to mutate an entry that has
// already been persisted.
type InvalidOperationError struct {
	EntryID int64
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("updating audit trail entries is not allowed (entry %d)", e.EntryID)
}

func (e *InvalidOperationError) Unwrap() error { return ErrInvalidOperation }
