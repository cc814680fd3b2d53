package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medisync/pkg/domain-errors"
)

func (s *ServiceSuite) TestEnableTwoFactor() {
	s.allowAudit()
	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")

	enrollment, err := s.service.EnableTwoFactor(context.Background(), registered.UserID, "10.0.0.1", "test-client")
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), enrollment.Secret)
	assert.Contains(s.T(), enrollment.ProvisioningURL, "otpauth://totp/")
	assert.Contains(s.T(), enrollment.ProvisioningURL, "issuer=MediSync")

	// Enabling twice is rejected.
	_, err = s.service.EnableTwoFactor(context.Background(), registered.UserID, "10.0.0.1", "test-client")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTwoFactorAlreadyEnabled))
}

func (s *ServiceSuite) TestLoginRequiresSecondFactorOnceEnabled() {
	s.allowAudit()
	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")

	enrollment, err := s.service.EnableTwoFactor(context.Background(), registered.UserID, "10.0.0.1", "test-client")
	require.NoError(s.T(), err)

	// Correct password but no code.
	_, err = s.service.Login(context.Background(), s.loginRequest("jdoe", "correct-horse-battery"))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTwoFactorRequired))

	// Correct password, wrong code.
	req := s.loginRequest("jdoe", "correct-horse-battery")
	req.TwoFactorCode = "000000"
	_, err = s.service.Login(context.Background(), req)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTwoFactorInvalid))

	// Correct password and the code an authenticator app would show now.
	code, err := totpCodeAt(enrollment.Secret, s.clock)
	require.NoError(s.T(), err)
	assert.True(s.T(), s.service.VerifyTwoFactor(enrollment.Secret, code))
	req = s.loginRequest("jdoe", "correct-horse-battery")
	req.TwoFactorCode = code
	result, err := s.service.Login(context.Background(), req)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.UserID, result.UserID)
}

func (s *ServiceSuite) TestWrongCodeDoesNotCountTowardLockout() {
	s.allowAudit()
	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")
	_, err := s.service.EnableTwoFactor(context.Background(), registered.UserID, "10.0.0.1", "test-client")
	require.NoError(s.T(), err)

	req := s.loginRequest("jdoe", "correct-horse-battery")
	req.TwoFactorCode = "000000"
	for i := 0; i < testLockoutThreshold+1; i++ {
		_, err := s.service.Login(context.Background(), req)
		assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTwoFactorInvalid))
	}

	stored, err := s.credentials.FindByID(context.Background(), registered.UserID)
	require.NoError(s.T(), err)
	assert.False(s.T(), stored.Locked)
}

func (s *ServiceSuite) TestEnableTwoFactorUnknownUser() {
	_, err := s.service.EnableTwoFactor(context.Background(), uuid.New(), "10.0.0.1", "test-client")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}
