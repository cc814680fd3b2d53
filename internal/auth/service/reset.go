package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"medisync/internal/audit"
	credentialStore "medisync/internal/auth/store/credential"
	dErrors "medisync/pkg/domain-errors"
)

const resetTokenBytes = 32

// RequestPasswordReset issues a single-use reset ticket and hands it to the
// notifier. The response is identical whether or not the email is known, so
// the endpoint cannot confirm which addresses have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email, ip, userAgent string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.request_password_reset")
	defer func() { span.End(err) }()

	credential, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentialStore.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return err
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not generate reset ticket")
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(s.resetTicketTTL)

	credential.ResetToken = &token
	credential.ResetExpiresAt = &expires
	credential.UpdatedAt = s.now()

	if err := s.recordAuthEvent(ctx, audit.EventPasswordResetRequest, credential.UserID, ip, userAgent); err != nil {
		return err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return err
	}

	if s.notifier == nil {
		s.logger.WarnContext(ctx, "no notifier configured; reset ticket not delivered",
			"user_id", credential.UserID.String(),
		)
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, credential.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "password reset notification failed",
			"user_id", credential.UserID.String(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeNotificationFailed, "could not deliver reset notification")
	}
	return nil
}

// ResetPassword consumes a reset ticket and sets a new password. The ticket
// is cleared atomically by the store, so a second attempt with the same
// token fails even under concurrency. Every outstanding refresh token for
// the account is revoked.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, ip, userAgent string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.reset_password")
	defer func() { span.End(err) }()

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	credential, err := s.credentials.ConsumeResetTicket(ctx, token, s.now())
	if err != nil {
		s.authFailure(ctx, "reset_ticket_rejected")
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	now := s.now()
	credential.PasswordHash = hash
	credential.PasswordChangedAt = now
	credential.FailedAttempts = 0
	credential.Locked = false
	credential.UpdatedAt = now

	if err := s.recordAuthEvent(ctx, audit.EventPasswordReset, credential.UserID, ip, userAgent); err != nil {
		return err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return err
	}

	if _, err := s.refreshTokens.RevokeAllForUser(ctx, credential.UserID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", credential.UserID.String())
	return nil
}
