package service

import (
	"context"

	"github.com/google/uuid"

	"medisync/internal/audit"
	dErrors "medisync/pkg/domain-errors"
)

// TwoFactorEnrollment is returned once, at enable time. The secret is never
// readable again through the service.
type TwoFactorEnrollment struct {
	Secret          string
	ProvisioningURL string
}

// VerifyTwoFactor checks a code against a secret at the current time,
// tolerating one step of clock drift either way. Stateless; login uses it
// with the stored secret.
func (s *Service) VerifyTwoFactor(secret, code string) bool {
	return verifyTOTPCode(secret, code, s.now())
}

// EnableTwoFactor generates and stores a TOTP secret for the account. From
// the next login on, a valid code is required alongside the password.
func (s *Service) EnableTwoFactor(ctx context.Context, userID uuid.UUID, ip, userAgent string) (enrollment *TwoFactorEnrollment, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.enable_two_factor")
	defer func() { span.End(err) }()

	credential, err := s.credentials.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if credential.TwoFactorEnabled {
		return nil, dErrors.New(dErrors.CodeTwoFactorAlreadyEnabled, "two-factor authentication is already enabled")
	}

	secret, err := generateTOTPSecret()
	if err != nil {
		return nil, err
	}
	credential.TwoFactorSecret = &secret
	credential.TwoFactorEnabled = true
	credential.UpdatedAt = s.now()

	if err := s.recordAuthEvent(ctx, audit.EventTwoFactorEnable, userID, ip, userAgent); err != nil {
		return nil, err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "two-factor authentication enabled", "user_id", userID.String())
	return &TwoFactorEnrollment{
		Secret:          secret,
		ProvisioningURL: otpAuthURL(secret, credential.Email),
	}, nil
}
