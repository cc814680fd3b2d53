package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medisync/internal/auth/models"
	dErrors "medisync/pkg/domain-errors"
)

func (s *ServiceSuite) login(identifier, password string) *models.LoginResult {
	result, err := s.service.Login(context.Background(), s.loginRequest(identifier, password))
	require.NoError(s.T(), err)
	return result
}

func (s *ServiceSuite) TestRotateRefreshToken() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")
	result := s.login("jdoe", "correct-horse-battery")

	pair, err := s.service.RotateRefreshToken(context.Background(), result.Tokens.RefreshToken, "10.0.0.1", "test-client")
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), pair.AccessToken)
	assert.NotEqual(s.T(), result.Tokens.RefreshToken, pair.RefreshToken)

	// The fresh refresh token rotates again without trouble.
	_, err = s.service.RotateRefreshToken(context.Background(), pair.RefreshToken, "10.0.0.1", "test-client")
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestRefreshReuseRevokesFamily() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")
	result := s.login("jdoe", "correct-horse-battery")

	pair, err := s.service.RotateRefreshToken(context.Background(), result.Tokens.RefreshToken, "10.0.0.1", "test-client")
	require.NoError(s.T(), err)

	// Presenting the consumed token again is reuse.
	_, err = s.service.RotateRefreshToken(context.Background(), result.Tokens.RefreshToken, "10.0.0.9", "stolen-client")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTokenReused))

	// The whole family is dead, including the latest token.
	_, err = s.service.RotateRefreshToken(context.Background(), pair.RefreshToken, "10.0.0.1", "test-client")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTokenInvalidSignature))
}

func (s *ServiceSuite) TestRotateExpiredRefreshToken() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")
	result := s.login("jdoe", "correct-horse-battery")

	s.advance(31 * 24 * time.Hour)

	_, err := s.service.RotateRefreshToken(context.Background(), result.Tokens.RefreshToken, "10.0.0.1", "test-client")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *ServiceSuite) TestAccessTokenRejectedAsRefresh() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")
	result := s.login("jdoe", "correct-horse-battery")

	_, err := s.service.RotateRefreshToken(context.Background(), result.Tokens.AccessToken, "10.0.0.1", "test-client")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTokenInvalidSignature))
}

func (s *ServiceSuite) TestValidateAccessTokenExpiry() {
	s.allowAudit()
	registered := s.register("jdoe", "jane@example.com", "correct-horse-battery")
	result := s.login("jdoe", "correct-horse-battery")

	subject, err := s.service.ValidateAccessToken(context.Background(), result.Tokens.AccessToken)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.UserID, subject)

	s.advance(16 * time.Minute)

	_, err = s.service.ValidateAccessToken(context.Background(), result.Tokens.AccessToken)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *ServiceSuite) TestPurgeExpiredRefreshTokens() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")
	s.login("jdoe", "correct-horse-battery")

	deleted, err := s.service.PurgeExpiredRefreshTokens(context.Background())
	require.NoError(s.T(), err)
	assert.Zero(s.T(), deleted)

	s.advance(31 * 24 * time.Hour)

	deleted, err = s.service.PurgeExpiredRefreshTokens(context.Background())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, deleted)
}
