package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the authentication state for one user. It is owned by the
// auth service; nothing else mutates it. The reset ticket lives on the
// credential row, as a nullable token/expiry pair that is cleared on first
// successful use.
type Credential struct {
	UserID            uuid.UUID
	Username          string
	Email             string
	Role              string
	PasswordHash      string
	PasswordChangedAt time.Time

	FailedAttempts int
	Locked         bool

	TwoFactorSecret  *string
	TwoFactorEnabled bool

	LastLoginAt          *time.Time
	LastLoginIP          *string
	LastLoginDevice      *string
	LastLoginFingerprint *string

	ResetToken     *string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy safe to mutate before handing back to the store.
func (c *Credential) Clone() *Credential {
	clone := *c
	return &clone
}

// RefreshTokenRecord tracks one issued refresh token by its unique id so it
// can be invalidated. Rotation marks the record used; presenting a used
// token again is reuse.
type RefreshTokenRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	JTI       string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// TokenPair is an access/refresh pair issued together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
}

// LoginRequest is the credential-verification input assembled by the HTTP
// layer (out of scope here): identifier plus optional second-factor code and
// request attribution.
type LoginRequest struct {
	Identifier    string // username or email
	Password      string
	TwoFactorCode string
	IPAddress     string
	UserAgent     string
}

// LoginResult is returned on a fully successful login.
type LoginResult struct {
	UserID uuid.UUID
	Tokens *TokenPair
}

// RegisterRequest creates a new credential.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	Role      string
	IPAddress string
	UserAgent string
}
