package service

import (
	"context"

	"audit-trail-service/internal/domain"
	"audit-trail-service/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// EntryWriter persists audit entries and assigns their id.
type EntryWriter interface {
	Save(ctx context.Context, entry *domain.AuditEntry) error
}

// LifecycleHooks are invoked by the owner of an audited record, exactly once
// per mutation and inside the mutation's transaction. A nil entry with a nil
// error means nothing was logged.
type LifecycleHooks interface {
	OnInsert(ctx context.Context, record domain.Record, ec ExecutionContext) (*domain.AuditEntry, error)
	OnUpdate(ctx context.Context, record domain.Record, changed domain.Attributes, ec ExecutionContext) (*domain.AuditEntry, error)
	OnDelete(ctx context.Context, record domain.Record, ec ExecutionContext) (*domain.AuditEntry, error)
}

// HooksBinder returns hooks that write through w, typically a
// transaction-bound store.
type HooksBinder interface {
	Bind(w EntryWriter) LifecycleHooks
}

var (
	_ LifecycleHooks = (*Recorder)(nil)
	_ HooksBinder    = (*Recorder)(nil)
)

// Recorder builds and persists audit entries for one audited record type.
type Recorder struct {
	writer     EntryWriter
	opts       Options
	normalizer Normalizer
	metrics    *metrics.Metrics
}

func NewRecorder(writer EntryWriter, opts Options) *Recorder {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	return &Recorder{
		writer: writer,
		opts:   opts,
		normalizer: Normalizer{
			CaseSensitive:     opts.CaseSensitive,
			EmptyStringIsNull: opts.EmptyStringIsNull,
		},
	}
}

// WithMetrics returns a copy of r reporting to m.
func (r *Recorder) WithMetrics(m *metrics.Metrics) *Recorder {
	cp := *r
	cp.metrics = m
	return &cp
}

// Bind returns a copy of r that writes through w.
func (r *Recorder) Bind(w EntryWriter) LifecycleHooks {
	cp := *r
	cp.writer = w
	return &cp
}

func (r *Recorder) Options() Options { return r.opts }

// RelevantFields returns the schema fields minus the ignored ones, keeping
// schema order.
func RelevantFields(schema []string, ignored []string) []string {
	skip := make(map[string]struct{}, len(ignored))
	for _, a := range ignored {
		skip[a] = struct{}{}
	}
	fields := make([]string, 0, len(schema))
	for _, f := range schema {
		if _, ok := skip[f]; ok {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func (r *Recorder) relevantFields(record domain.Record) []string {
	return RelevantFields(record.Fields(), r.opts.IgnoredAttributes)
}

// ResolveActor returns the actor to record for ec.
func (r *Recorder) ResolveActor(ec ExecutionContext) *int64 {
	if ec.System {
		if r.opts.SystemActor != nil {
			return r.opts.SystemActor.SystemActorID()
		}
		return copyID(r.opts.SystemActorID)
	}
	return copyID(ec.ActorID)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// ResolveTimestamp returns the current unix time of the configured clock.
func (r *Recorder) ResolveTimestamp() int64 {
	return r.opts.Clock.Now().Unix()
}

func (r *Recorder) prepareEntry(record domain.Record, kind domain.AuditKind, ec ExecutionContext) (*domain.AuditEntry, error) {
	if record == nil {
		return nil, &domain.ConfigurationError{Reason: "record is nil"}
	}
	if record.SubjectType() == "" {
		return nil, &domain.ConfigurationError{Reason: "record declares no subject type"}
	}
	if len(record.Fields()) == 0 {
		return nil, &domain.ConfigurationError{SubjectType: record.SubjectType(), Reason: "record declares no schema fields"}
	}

	key, err := domain.EncodeSubjectKey(record)
	if err != nil {
		return nil, err
	}

	return &domain.AuditEntry{
		SubjectType: record.SubjectType(),
		SubjectKey:  key,
		HappenedAt:  r.ResolveTimestamp(),
		ActorID:     r.ResolveActor(ec),
		Kind:        kind,
	}, nil
}

func (r *Recorder) save(ctx context.Context, entry *domain.AuditEntry) error {
	if err := r.writer.Save(ctx, entry); err != nil {
		r.metrics.IncrementSaveFailure(string(entry.Kind), entry.SubjectType)
		log.WithError(err).WithFields(log.Fields{
			"subject_type": entry.SubjectType,
			"subject_key":  entry.SubjectKey,
			"kind":         entry.Kind,
		}).Error("Failed to save audit trail entry")
		return err
	}

	r.metrics.IncrementRecorded(string(entry.Kind), entry.SubjectType)
	log.WithFields(log.Fields{
		"entry_id":     entry.ID,
		"subject_type": entry.SubjectType,
		"kind":         entry.Kind,
		"changes":      len(entry.Changes),
	}).Debug("Audit trail entry saved")
	return nil
}

// OnInsert logs an insert. With PersistValuesOnInsert every relevant field
// holding a non-null, non-blank value is recorded as a change from null.
func (r *Recorder) OnInsert(ctx context.Context, record domain.Record, ec ExecutionContext) (*domain.AuditEntry, error) {
	if !r.opts.LogInsert {
		return nil, nil
	}

	entry, err := r.prepareEntry(record, domain.AuditInsert, ec)
	if err != nil {
		return nil, err
	}

	if r.opts.PersistValuesOnInsert {
		var set domain.ChangeSet
		for _, field := range r.relevantFields(record) {
			v := record.Attribute(field)
			if v.IsNull() {
				continue
			}
			if r.opts.EmptyStringIsNull && v.IsBlank() {
				continue
			}
			set.Add(field, domain.Null(), v)
		}
		entry.Changes = set.Changes()
	}

	if err := r.save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// OnUpdate logs an update. changed maps each dirty attribute to its value
// before the mutation; the new value is read from record. Nothing is saved
// when no change survives normalization.
func (r *Recorder) OnUpdate(ctx context.Context, record domain.Record, changed domain.Attributes, ec ExecutionContext) (*domain.AuditEntry, error) {
	if !r.opts.LogUpdate {
		return nil, nil
	}

	entry, err := r.prepareEntry(record, domain.AuditUpdate, ec)
	if err != nil {
		return nil, err
	}

	relevant := make(map[string]struct{})
	for _, f := range r.relevantFields(record) {
		relevant[f] = struct{}{}
	}

	var set domain.ChangeSet
	changed.Each(func(name string, oldVal domain.Value) {
		if _, ok := relevant[name]; !ok {
			return
		}
		to, significant := r.normalizer.Normalize(oldVal, record.Attribute(name))
		if !significant {
			return
		}
		set.Add(name, oldVal, to)
	})

	if set.IsEmpty() {
		r.metrics.IncrementUpdateSkipped(entry.SubjectType)
		log.WithFields(log.Fields{
			"subject_type": entry.SubjectType,
			"subject_key":  entry.SubjectKey,
		}).Debug("Update produced no significant change, skipping audit entry")
		return nil, nil
	}

	entry.Changes = set.Changes()
	if err := r.save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// OnDelete logs a delete. It must run before the row is removed.
func (r *Recorder) OnDelete(ctx context.Context, record domain.Record, ec ExecutionContext) (*domain.AuditEntry, error) {
	if !r.opts.LogDelete {
		return nil, nil
	}

	entry, err := r.prepareEntry(record, domain.AuditDelete, ec)
	if err != nil {
		return nil, err
	}

	if err := r.save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
