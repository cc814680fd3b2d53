package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies what an audit entry describes.
type EventKind string

const (
	EventCreate EventKind = "CREATE"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"

	// Auth lifecycle events. The auth service records its own state changes
	// through the same recorder as entity mutations.
	EventLogin                EventKind = "LOGIN"
	EventLoginFailed          EventKind = "LOGIN_FAILED"
	EventRegister             EventKind = "REGISTER"
	EventTwoFactorEnable      EventKind = "2FA_ENABLE"
	EventPasswordResetRequest EventKind = "PASSWORD_RESET_REQUEST"
	EventPasswordReset        EventKind = "PASSWORD_RESET"
	EventTokenRotated         EventKind = "TOKEN_ROTATED"
	EventTokenReuseDetected   EventKind = "TOKEN_REUSE_DETECTED"
)

// Entry is one append-only audit record: who changed what, from what, to
// what, and when. Entries are created only by the Recorder and never mutated
// or deleted through application paths.
type Entry struct {
	ID         uuid.UUID
	Kind       EventKind
	EntityType string
	EntityID   string
	OldValues  map[string]string
	NewValues  map[string]string
	ActorID    *uuid.UUID
	IPAddress  *string
	UserAgent  *string
	Timestamp  time.Time
}

// Auditable is implemented by every entity whose lifecycle is recorded.
// AuditValues must return the plaintext attribute snapshot: diffing happens
// before field encryption, never on ciphertext, because two encryptions of
// the same plaintext legitimately differ.
type Auditable interface {
	AuditEntityType() string
	AuditEntityID() string
	AuditValues() map[string]string
}

// Exempt marks entity types the recorder must skip, such as backup run logs.
// Audit entries themselves are not Auditable, so recording can never recurse.
type Exempt interface {
	AuditExempt()
}

// Change pairs a dirty entity with the plaintext snapshot taken when it was
// loaded, so the recorder can tell which attributes actually changed.
type Change struct {
	Entity   Auditable
	Original map[string]string
}

// ChangeSet is the view of one unit of work handed to the recorder before
// commit: the created, modified, and deleted entity sets plus request
// attribution.
type ChangeSet struct {
	New     []Auditable
	Dirty   []Change
	Deleted []Auditable

	ActorID   *uuid.UUID
	IPAddress *string
	UserAgent *string
}
