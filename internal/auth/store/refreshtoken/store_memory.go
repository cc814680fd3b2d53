package refreshtoken

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"medisync/internal/auth/models"
	dErrors "medisync/pkg/domain-errors"
)

// ErrNotFound is returned when no record exists for a token id.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "refresh token not found")

// ErrTokenUsed is returned when a refresh token has already been consumed by
// a rotation. The service treats this as reuse and revokes the family.
var ErrTokenUsed = dErrors.New(dErrors.CodeTokenReused, "refresh token already used")

// ErrTokenExpired is returned when the stored record has passed its expiry.
var ErrTokenExpired = dErrors.New(dErrors.CodeTokenExpired, "refresh token expired")

// InMemoryRefreshTokenStore tracks issued refresh tokens by jti. Consume is
// the rotation primitive: it validates and marks a record used in one
// critical section, so two concurrent rotations of the same token cannot
// both succeed.
type InMemoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshTokenRecord
}

func NewInMemoryRefreshTokenStore() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{tokens: make(map[string]*models.RefreshTokenRecord)}
}

func (s *InMemoryRefreshTokenStore) Create(_ context.Context, record *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[record.JTI] = record
	return nil
}

// Consume claims the record for rotation. Exactly one caller can win; every
// later caller sees ErrTokenUsed.
func (s *InMemoryRefreshTokenStore) Consume(_ context.Context, jti string, now time.Time) (*models.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[jti]
	if !ok {
		return nil, ErrNotFound
	}
	if now.After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if record.Used {
		return nil, ErrTokenUsed
	}
	record.Used = true
	copied := *record
	return &copied, nil
}

// RevokeAllForUser removes every record for the subject. Called when reuse
// is detected to invalidate the whole token family.
func (s *InMemoryRefreshTokenStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for jti, record := range s.tokens {
		if record.UserID == userID {
			delete(s.tokens, jti)
			revoked++
		}
	}
	return revoked, nil
}

// DeleteExpired clears records past their expiry. Intended for a periodic
// cleanup worker.
func (s *InMemoryRefreshTokenStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for jti, record := range s.tokens {
		if record.ExpiresAt.Before(now) {
			delete(s.tokens, jti)
			deleted++
		}
	}
	return deleted, nil
}
