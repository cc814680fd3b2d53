package credential

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medisync/internal/auth/models"
	dErrors "medisync/pkg/domain-errors"
)

// ErrNotFound is returned when a requested credential is not found.
// Services should check for this error using errors.Is(err, ErrNotFound).
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "credential not found")

// ErrTicketInvalid is returned when a reset ticket is missing or expired.
var ErrTicketInvalid = dErrors.New(dErrors.CodeTicketInvalid, "reset ticket is invalid or expired")

// InMemoryCredentialStore keeps credentials under a coarse lock. It favors
// clarity over performance; the contracts (notably atomic single-use ticket
// consumption) are what a relational implementation must preserve.
type InMemoryCredentialStore struct {
	mu          sync.RWMutex
	credentials map[uuid.UUID]*models.Credential
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{credentials: make(map[uuid.UUID]*models.Credential)}
}

func (s *InMemoryCredentialStore) Save(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.UserID] = credential.Clone()
	return nil
}

func (s *InMemoryCredentialStore) FindByID(_ context.Context, id uuid.UUID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.credentials[id]; ok {
		return c.Clone(), nil
	}
	return nil, ErrNotFound
}

// FindByIdentifier matches either username or email, case-insensitively.
func (s *InMemoryCredentialStore) FindByIdentifier(_ context.Context, identifier string) (*models.Credential, error) {
	needle := strings.ToLower(identifier)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if strings.ToLower(c.Username) == needle || strings.ToLower(c.Email) == needle {
			return c.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryCredentialStore) FindByEmail(_ context.Context, email string) (*models.Credential, error) {
	needle := strings.ToLower(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if strings.ToLower(c.Email) == needle {
			return c.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// ConsumeResetTicket atomically claims a single-use reset ticket: the token
// and expiry are cleared in the same critical section that validates them,
// so a second verification with the same token can never succeed.
func (s *InMemoryCredentialStore) ConsumeResetTicket(_ context.Context, token string, now time.Time) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.ResetToken == nil || *c.ResetToken != token {
			continue
		}
		if c.ResetExpiresAt == nil || now.After(*c.ResetExpiresAt) {
			return nil, ErrTicketInvalid
		}
		c.ResetToken = nil
		c.ResetExpiresAt = nil
		return c.Clone(), nil
	}
	return nil, ErrTicketInvalid
}
