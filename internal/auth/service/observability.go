package service

import (
	"context"

	"github.com/google/uuid"

	"medisync/internal/audit"
)

// Observability helpers for logging, auditing, and metrics.

// recordAuthEvent appends one lifecycle entry and logs it. The returned error
// carries CodeAuditWriteFailed; callers abort the operation on it so that no
// credential state change lands without its audit entry.
//
// Callers invoke this before credentials.Save, which is what makes the abort
// possible. The in-memory Save cannot fail afterwards; a transactional
// CredentialStore must commit the audit append and the row write in the same
// unit of work so neither becomes visible without the other.
func (s *Service) recordAuthEvent(ctx context.Context, kind audit.EventKind, userID uuid.UUID, ip, userAgent string) error {
	set := audit.ChangeSet{
		ActorID:   &userID,
		IPAddress: optional(ip),
		UserAgent: optional(userAgent),
	}
	if err := s.recorder.RecordEvent(ctx, kind, entityTypeCredential, userID.String(), set); err != nil {
		s.logger.ErrorContext(ctx, "failed to record auth event",
			"event", string(kind),
			"user_id", userID.String(),
			"error", err,
		)
		return err
	}
	s.logger.InfoContext(ctx, string(kind),
		"event", string(kind),
		"user_id", userID.String(),
		"log_type", "audit",
	)
	return nil
}

// authFailure logs a failed authentication attempt and bumps the counter.
// The reason is for operators; callers return a deliberately vaguer error.
func (s *Service) authFailure(ctx context.Context, reason string, attributes ...any) {
	args := append(attributes, "reason", reason)
	s.logger.WarnContext(ctx, "authentication failed", args...)
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures()
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
