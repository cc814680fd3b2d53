package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "medisync/pkg/domain-errors"
)

// Store persists audit entries. Append-only: there are deliberately no
// update or delete operations in this contract.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]Entry, error)
}

// Observer receives a callback per recorded entry. Used to feed metrics
// without coupling the recorder to a metrics implementation.
type Observer interface {
	EntryRecorded(kind string)
}

// Recorder turns pre-commit change sets into audit entries. Append failures
// are wrapped with CodeAuditWriteFailed and must abort the enclosing unit of
// work: a mutation of protected data without its audit trail is never
// committed.
type Recorder struct {
	store    Store
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

// WithClock overrides the timestamp source. Tests use this for stable entries.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Record produces one entry per affected entity in the change set and
// appends them all. Exempt entities are skipped. The caller must invoke this
// inside the same unit of work as the mutations themselves and abort on
// error.
func (r *Recorder) Record(ctx context.Context, set ChangeSet) error {
	for _, entity := range set.New {
		if isExempt(entity) {
			continue
		}
		entry := r.newEntry(EventCreate, entity, set)
		entry.NewValues = entity.AuditValues()
		if err := r.append(ctx, entry); err != nil {
			return err
		}
	}

	for _, change := range set.Dirty {
		if isExempt(change.Entity) {
			continue
		}
		oldValues, newValues := diff(change.Original, change.Entity.AuditValues())
		if len(newValues) == 0 {
			// Nothing actually changed; no entry.
			continue
		}
		entry := r.newEntry(EventUpdate, change.Entity, set)
		entry.OldValues = oldValues
		entry.NewValues = newValues
		if err := r.append(ctx, entry); err != nil {
			return err
		}
	}

	for _, entity := range set.Deleted {
		if isExempt(entity) {
			continue
		}
		entry := r.newEntry(EventDelete, entity, set)
		entry.OldValues = entity.AuditValues()
		if err := r.append(ctx, entry); err != nil {
			return err
		}
	}

	return nil
}

// RecordEvent appends a single lifecycle entry outside entity diffing. The
// auth service uses this for logins, enrollments, and resets.
func (r *Recorder) RecordEvent(ctx context.Context, kind EventKind, entityType, entityID string, set ChangeSet) error {
	entry := Entry{
		ID:         uuid.New(),
		Kind:       kind,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    set.ActorID,
		IPAddress:  set.IPAddress,
		UserAgent:  set.UserAgent,
		Timestamp:  r.now(),
	}
	return r.append(ctx, entry)
}

func (r *Recorder) newEntry(kind EventKind, entity Auditable, set ChangeSet) Entry {
	return Entry{
		ID:         uuid.New(),
		Kind:       kind,
		EntityType: entity.AuditEntityType(),
		EntityID:   entity.AuditEntityID(),
		ActorID:    set.ActorID,
		IPAddress:  set.IPAddress,
		UserAgent:  set.UserAgent,
		Timestamp:  r.now(),
	}
}

func (r *Recorder) append(ctx context.Context, entry Entry) error {
	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"kind", entry.Kind,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "could not append audit entry")
	}
	if r.observer != nil {
		r.observer.EntryRecorded(string(entry.Kind))
	}
	return nil
}

func isExempt(entity Auditable) bool {
	_, ok := entity.(Exempt)
	return ok
}

// diff returns the old and new values for attributes whose plaintext value
// actually changed. Keys present in only one snapshot count as changed.
func diff(original, current map[string]string) (map[string]string, map[string]string) {
	oldValues := make(map[string]string)
	newValues := make(map[string]string)
	for key, after := range current {
		before, existed := original[key]
		if !existed || before != after {
			if existed {
				oldValues[key] = before
			}
			newValues[key] = after
		}
	}
	for key, before := range original {
		if _, still := current[key]; !still {
			oldValues[key] = before
			newValues[key] = ""
		}
	}
	return oldValues, newValues
}
