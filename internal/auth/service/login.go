package service

import (
	"context"
	"errors"

	"medisync/internal/audit"
	"medisync/internal/auth/device"
	"medisync/internal/auth/models"
	credentialStore "medisync/internal/auth/store/credential"
	dErrors "medisync/pkg/domain-errors"
)

// Login verifies a credential and issues a token pair. Unknown identifiers
// and wrong passwords return the same error so the endpoint cannot be used
// to probe which accounts exist. Failed password attempts are counted and
// the account locks at the configured threshold; the second factor, when
// enabled, is required after the password checks out.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (result *models.LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer func() { span.End(err) }()

	credential, err := s.credentials.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, credentialStore.ErrNotFound) {
			s.authFailure(ctx, "unknown_identifier")
			return nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
		}
		return nil, err
	}

	if credential.Locked {
		s.authFailure(ctx, "account_locked", "user_id", credential.UserID.String())
		return nil, dErrors.New(dErrors.CodeAccountLocked, "account is locked")
	}

	if !verifyPassword(credential.PasswordHash, req.Password) {
		return nil, s.handleFailedPassword(ctx, credential, req)
	}

	if credential.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			s.authFailure(ctx, "two_factor_missing", "user_id", credential.UserID.String())
			return nil, dErrors.New(dErrors.CodeTwoFactorRequired, "two-factor code required")
		}
		if credential.TwoFactorSecret == nil || !verifyTOTPCode(*credential.TwoFactorSecret, req.TwoFactorCode, s.now()) {
			s.authFailure(ctx, "two_factor_invalid", "user_id", credential.UserID.String())
			return nil, dErrors.New(dErrors.CodeTwoFactorInvalid, "invalid two-factor code")
		}
	}

	now := s.now()
	credential.FailedAttempts = 0
	credential.LastLoginAt = &now
	credential.LastLoginIP = optional(req.IPAddress)
	credential.LastLoginDevice = optional(device.DisplayName(req.UserAgent))
	credential.LastLoginFingerprint = optional(device.Fingerprint(req.UserAgent))
	credential.UpdatedAt = now

	if err := s.recordAuthEvent(ctx, audit.EventLogin, credential.UserID, req.IPAddress, req.UserAgent); err != nil {
		return nil, err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, credential.UserID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementLoginsSucceeded()
	}
	return &models.LoginResult{UserID: credential.UserID, Tokens: tokens}, nil
}

// handleFailedPassword counts the failure, locks the account when the
// threshold is reached, and records the attempt.
func (s *Service) handleFailedPassword(ctx context.Context, credential *models.Credential, req *models.LoginRequest) error {
	credential.FailedAttempts++
	locked := credential.FailedAttempts >= s.lockoutThreshold
	if locked {
		credential.Locked = true
	}
	credential.UpdatedAt = s.now()

	if err := s.recordAuthEvent(ctx, audit.EventLoginFailed, credential.UserID, req.IPAddress, req.UserAgent); err != nil {
		return err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return err
	}

	s.authFailure(ctx, "wrong_password",
		"user_id", credential.UserID.String(),
		"failed_attempts", credential.FailedAttempts,
	)
	if locked {
		s.logger.WarnContext(ctx, "account locked after repeated failures",
			"user_id", credential.UserID.String(),
			"failed_attempts", credential.FailedAttempts,
		)
		if s.metrics != nil {
			s.metrics.IncrementAccountsLocked()
		}
		return dErrors.New(dErrors.CodeAccountLocked, "account is locked")
	}
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
}
