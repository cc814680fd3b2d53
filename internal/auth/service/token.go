package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"medisync/internal/audit"
	"medisync/internal/auth/models"
	refreshStore "medisync/internal/auth/store/refreshtoken"
	"medisync/internal/jwttoken"
	dErrors "medisync/pkg/domain-errors"
)

// issueTokens creates an access/refresh pair and records the refresh jti so
// the token can later be consumed exactly once by rotation.
func (s *Service) issueTokens(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error) {
	accessToken, _, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, jti, err := s.jwt.GenerateRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &models.RefreshTokenRecord{
		ID:        uuid.New(),
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: now.Add(s.jwt.RefreshTTL()),
		CreatedAt: now,
	}
	if err := s.refreshTokens.Create(ctx, record); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}
	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.jwt.AccessTTL(),
	}, nil
}

// RotateRefreshToken exchanges a refresh token for a fresh pair. The
// presented token is consumed; presenting it again is treated as theft
// evidence and revokes every outstanding refresh token for the subject.
func (s *Service) RotateRefreshToken(ctx context.Context, refreshToken, ip, userAgent string) (pair *models.TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.rotate_refresh_token")
	defer func() { span.End(err) }()

	claims, err := s.jwt.ValidateToken(refreshToken, jwttoken.KindRefresh)
	if err != nil {
		s.authFailure(ctx, "refresh_token_rejected")
		return nil, err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return nil, err
	}

	if _, err := s.refreshTokens.Consume(ctx, claims.ID, s.now()); err != nil {
		return nil, s.handleConsumeError(ctx, err, userID, ip, userAgent)
	}

	if err := s.recordAuthEvent(ctx, audit.EventTokenRotated, userID, ip, userAgent); err != nil {
		return nil, err
	}

	pair, err = s.issueTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementTokensRotated()
	}
	return pair, nil
}

// handleConsumeError translates rotation store errors. Reuse of an
// already-consumed token revokes the subject's whole token family before
// reporting the reuse.
func (s *Service) handleConsumeError(ctx context.Context, err error, userID uuid.UUID, ip, userAgent string) error {
	switch {
	case errors.Is(err, refreshStore.ErrTokenUsed):
		revoked, revokeErr := s.refreshTokens.RevokeAllForUser(ctx, userID)
		if revokeErr != nil {
			return revokeErr
		}
		s.logger.WarnContext(ctx, "refresh token reuse detected",
			"user_id", userID.String(),
			"tokens_revoked", revoked,
		)
		if s.metrics != nil {
			s.metrics.IncrementTokenReuses()
		}
		if auditErr := s.recordAuthEvent(ctx, audit.EventTokenReuseDetected, userID, ip, userAgent); auditErr != nil {
			return auditErr
		}
		return dErrors.New(dErrors.CodeTokenReused, "refresh token already used")
	case errors.Is(err, refreshStore.ErrNotFound):
		s.authFailure(ctx, "refresh_token_unknown", "user_id", userID.String())
		return dErrors.New(dErrors.CodeTokenInvalidSignature, "unknown refresh token")
	default:
		return err
	}
}

// ValidateAccessToken checks an access token and returns the subject. Used
// by the HTTP middleware guarding protected endpoints.
func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (uuid.UUID, error) {
	claims, err := s.jwt.ValidateToken(accessToken, jwttoken.KindAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.SubjectID()
}

// PurgeExpiredRefreshTokens is run periodically by the cleanup worker.
func (s *Service) PurgeExpiredRefreshTokens(ctx context.Context) (int, error) {
	deleted, err := s.refreshTokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "purged expired refresh tokens", "deleted", deleted)
	}
	return deleted, nil
}
