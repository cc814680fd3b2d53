package jwttoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "medisync/pkg/domain-errors"
)

// TokenKind distinguishes access tokens from refresh tokens in the claims,
// so one can never be presented where the other is expected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims are the signed structured claims carried by both token kinds:
// subject id, kind, issued-at, expiry, and a unique id (jti).
type Claims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source. Tests use this to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(signingKey string, issuer string, accessTTL, refreshTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL reports the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken issues a short-lived stateless token. The returned jti
// is informational; access tokens are verified by signature alone.
func (s *Service) GenerateAccessToken(userID uuid.UUID) (string, string, error) {
	return s.generate(userID, KindAccess, s.accessTTL)
}

// GenerateRefreshToken issues a long-lived token. The returned jti must be
// recorded by the caller so the token can be invalidated on rotation.
func (s *Service) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	return s.generate(userID, KindRefresh, s.refreshTTL)
}

func (s *Service) generate(userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token id")
	}
	jti := hex.EncodeToString(b)
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign token")
	}
	return signed, jti, nil
}

// ValidateToken parses and verifies a token of the expected kind. Expired
// tokens and badly signed tokens fail with distinct, non-overlapping codes.
func (s *Service) ValidateToken(tokenString string, want TokenKind) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeTokenInvalidSignature, "empty token")
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeTokenInvalidSignature, "invalid token")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeTokenInvalidSignature, "invalid token")
	}
	if claims.Kind != want {
		return nil, dErrors.New(dErrors.CodeTokenInvalidSignature, "unexpected token kind")
	}
	return claims, nil
}

// SubjectID extracts the subject claim as a user id.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeTokenInvalidSignature, "invalid token subject")
	}
	return id, nil
}
