package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"medisync/internal/audit"
	"medisync/internal/auth/models"
	dErrors "medisync/pkg/domain-errors"
)

func (s *ServiceSuite) loginRequest(identifier, password string) *models.LoginRequest {
	return &models.LoginRequest{
		Identifier: identifier,
		Password:   password,
		IPAddress:  "10.0.0.1",
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
}

func (s *ServiceSuite) TestLoginHappyPath() {
	s.allowAudit()
	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")

	result, err := s.service.Login(context.Background(), s.loginRequest("jdoe", "correct-horse-battery"))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.UserID, result.UserID)
	assert.NotEmpty(s.T(), result.Tokens.AccessToken)
	assert.NotEmpty(s.T(), result.Tokens.RefreshToken)
	assert.Equal(s.T(), "Bearer", result.Tokens.TokenType)

	// The access token is immediately usable on protected endpoints.
	subject, err := s.service.ValidateAccessToken(context.Background(), result.Tokens.AccessToken)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.UserID, subject)

	// Last-login attribution is persisted.
	stored, err := s.credentials.FindByID(context.Background(), registered.UserID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored.LastLoginAt)
	require.NotNil(s.T(), stored.LastLoginDevice)
	assert.Contains(s.T(), *stored.LastLoginDevice, "Chrome")
}

func (s *ServiceSuite) TestLoginByEmail() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	_, err := s.service.Login(context.Background(), s.loginRequest("JANE@example.com", "correct-horse-battery"))
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestLoginUnknownIdentifierIsIndistinguishable() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	_, unknownErr := s.service.Login(context.Background(), s.loginRequest("nobody", "whatever-pass"))
	_, wrongPassErr := s.service.Login(context.Background(), s.loginRequest("jdoe", "wrong-password"))

	require.Error(s.T(), unknownErr)
	require.Error(s.T(), wrongPassErr)
	assert.True(s.T(), dErrors.HasCode(unknownErr, dErrors.CodeInvalidCredentials))
	assert.True(s.T(), dErrors.HasCode(wrongPassErr, dErrors.CodeInvalidCredentials))
	assert.Equal(s.T(), unknownErr.Error(), wrongPassErr.Error())
}

func (s *ServiceSuite) TestLoginLockoutAtThreshold() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	for i := 0; i < testLockoutThreshold-1; i++ {
		_, err := s.service.Login(context.Background(), s.loginRequest("jdoe", "wrong-password"))
		assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
	}

	// The attempt that reaches the threshold locks the account.
	_, err := s.service.Login(context.Background(), s.loginRequest("jdoe", "wrong-password"))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeAccountLocked))

	// Even the correct password is refused once locked.
	_, err = s.service.Login(context.Background(), s.loginRequest("jdoe", "correct-horse-battery"))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeAccountLocked))
}

func (s *ServiceSuite) TestLoginSuccessResetsFailureCount() {
	s.allowAudit()
	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")

	_, err := s.service.Login(context.Background(), s.loginRequest("jdoe", "wrong-password"))
	require.Error(s.T(), err)

	_, err = s.service.Login(context.Background(), s.loginRequest("jdoe", "correct-horse-battery"))
	require.NoError(s.T(), err)

	stored, err := s.credentials.FindByID(context.Background(), registered.UserID)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), stored.FailedAttempts)
}

func (s *ServiceSuite) TestLoginAbortsWhenAuditFails() {
	registerCall := s.mockRecorder.EXPECT().
		RecordEvent(gomock.Any(), audit.EventRegister, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	s.mockRecorder.EXPECT().
		RecordEvent(gomock.Any(), audit.EventLogin, gomock.Any(), gomock.Any(), gomock.Any()).
		After(registerCall).
		Return(errors.New("audit store down"))

	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")

	_, err := s.service.Login(context.Background(), s.loginRequest("jdoe", "correct-horse-battery"))
	require.Error(s.T(), err)

	// No last-login state was persisted without the audit entry.
	stored, err := s.credentials.FindByID(context.Background(), registered.UserID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), stored.LastLoginAt)
}

func (s *ServiceSuite) TestRegisterRejectsDuplicates() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	_, err := s.service.Register(context.Background(), &models.RegisterRequest{
		Username: "jdoe",
		Email:    "other@example.com",
		Password: "another-password",
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.Register(context.Background(), &models.RegisterRequest{
		Username: "other",
		Email:    "JANE@example.com",
		Password: "another-password",
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRegisterValidation() {
	_, err := s.service.Register(context.Background(), &models.RegisterRequest{
		Username: "jdoe",
		Email:    "not-an-email",
		Password: "correct-horse-battery",
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Register(context.Background(), &models.RegisterRequest{
		Username: "jdoe",
		Email:    "jane@example.com",
		Password: "short",
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}
