package service

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	dErrors "medisync/pkg/domain-errors"
)

func (s *ServiceSuite) TestPasswordResetFlow() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	var ticket string
	s.mockNotifier.EXPECT().
		SendPasswordReset(gomock.Any(), "jane@example.com", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, token string) error {
			ticket = token
			return nil
		})

	require.NoError(s.T(), s.service.RequestPasswordReset(context.Background(), "jane@example.com", "10.0.0.1", "test-client"))
	require.NotEmpty(s.T(), ticket)

	require.NoError(s.T(), s.service.ResetPassword(context.Background(), ticket, "brand-new-password", "10.0.0.1", "test-client"))

	// Old password no longer works, new one does.
	_, err := s.service.Login(context.Background(), s.loginRequest("jdoe", "correct-horse-battery"))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
	_, err = s.service.Login(context.Background(), s.loginRequest("jdoe", "brand-new-password"))
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestResetTicketIsSingleUse() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	var ticket string
	s.mockNotifier.EXPECT().
		SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, token string) error {
			ticket = token
			return nil
		})
	require.NoError(s.T(), s.service.RequestPasswordReset(context.Background(), "jane@example.com", "10.0.0.1", "test-client"))

	require.NoError(s.T(), s.service.ResetPassword(context.Background(), ticket, "brand-new-password", "10.0.0.1", "test-client"))

	err := s.service.ResetPassword(context.Background(), ticket, "yet-another-password", "10.0.0.1", "test-client")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTicketInvalid))
}

func (s *ServiceSuite) TestResetTicketExpires() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	var ticket string
	s.mockNotifier.EXPECT().
		SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, token string) error {
			ticket = token
			return nil
		})
	require.NoError(s.T(), s.service.RequestPasswordReset(context.Background(), "jane@example.com", "10.0.0.1", "test-client"))

	s.advance(25 * time.Hour)

	err := s.service.ResetPassword(context.Background(), ticket, "brand-new-password", "10.0.0.1", "test-client")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTicketInvalid))
}

func (s *ServiceSuite) TestResetRequestUnknownEmailRevealsNothing() {
	// No notifier call, no audit entry, no error.
	err := s.service.RequestPasswordReset(context.Background(), "stranger@example.com", "10.0.0.1", "test-client")
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestResetRequestSurfacesNotificationFailure() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")

	s.mockNotifier.EXPECT().
		SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("smtp unreachable"))

	err := s.service.RequestPasswordReset(context.Background(), "jane@example.com", "10.0.0.1", "test-client")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotificationFailed))
}

func (s *ServiceSuite) TestResetInvalidatesRefreshTokens() {
	s.allowAudit()
	s.register("jdoe", "jane@example.com", "correct-horse-battery")
	result := s.login("jdoe", "correct-horse-battery")

	var ticket string
	s.mockNotifier.EXPECT().
		SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, token string) error {
			ticket = token
			return nil
		})
	require.NoError(s.T(), s.service.RequestPasswordReset(context.Background(), "jane@example.com", "10.0.0.1", "test-client"))
	require.NoError(s.T(), s.service.ResetPassword(context.Background(), ticket, "brand-new-password", "10.0.0.1", "test-client"))

	_, err := s.service.RotateRefreshToken(context.Background(), result.Tokens.RefreshToken, "10.0.0.1", "test-client")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTokenInvalidSignature))
}

func (s *ServiceSuite) TestResetRejectsWeakPassword() {
	err := s.service.ResetPassword(context.Background(), "any-token", "short", "10.0.0.1", "test-client")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}
