package service

import "time"

// Clock supplies the time an audit entry happened at.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// SystemActorProvider resolves the actor recorded for non-interactive runs
// (migrations, cron jobs, CLI tools).
type SystemActorProvider interface {
	SystemActorID() *int64
}

// ExecutionContext carries who triggered a mutation. It replaces any
// ambient "current user" lookup.
type ExecutionContext struct {
	// System is true for non-interactive execution.
	System bool
	// ActorID is nil for anonymous callers.
	ActorID *int64
}

func Anonymous() ExecutionContext { return ExecutionContext{} }

func AsActor(id int64) ExecutionContext { return ExecutionContext{ActorID: &id} }

func AsSystem() ExecutionContext { return ExecutionContext{System: true} }

// Options configure auditing of one record type.
type Options struct {
	// IgnoredAttributes are never audited, e.g. created_at and updated_at.
	IgnoredAttributes []string

	LogInsert bool
	LogUpdate bool
	LogDelete bool

	// PersistValuesOnInsert records the initial non-blank values of an
	// inserted record as changes from null.
	PersistValuesOnInsert bool

	// EmptyStringIsNull stores a change to "" as null and skips blank
	// values on insert. When false, blanks are recorded verbatim.
	EmptyStringIsNull bool

	CaseSensitive bool

	// Clock overrides wall-clock time.
	Clock Clock

	// SystemActor takes precedence over SystemActorID when set.
	SystemActor   SystemActorProvider
	SystemActorID *int64
}

// DefaultOptions logs every mutation kind, persists insert values, treats
// "" as null and compares strings case-insensitively.
func DefaultOptions() Options {
	return Options{
		LogInsert:             true,
		LogUpdate:             true,
		LogDelete:             true,
		PersistValuesOnInsert: true,
		EmptyStringIsNull:     true,
		CaseSensitive:         false,
	}
}
