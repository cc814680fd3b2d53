package config

import (
	"os"
	"strconv"
	"time"

	dErrors "medisync/pkg/domain-errors"
)

// Server captures process-level configuration for the trust core.
type Server struct {
	Addr             string
	Development      bool
	EncryptionSecret string
	JWTSigningKey    string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResetTicketTTL   time.Duration
	LockoutThreshold int
}

const (
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 30 * 24 * time.Hour
	defaultResetTicketTTL   = 24 * time.Hour
	defaultLockoutThreshold = 5
)

// FromEnv builds a Server config from environment variables so main stays lean.
//
// MEDISYNC_ENCRYPTION_SECRET is the pre-KDF secret for field encryption. It
// has no default outside development mode: running a records system for
// protected health information without encryption at rest is a deployment
// error, not a degraded mode.
func FromEnv() (Server, error) {
	addr := os.Getenv("MEDISYNC_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	development := os.Getenv("MEDISYNC_ENV") == "development"

	secret := os.Getenv("MEDISYNC_ENCRYPTION_SECRET")
	if secret == "" {
		if !development {
			return Server{}, dErrors.New(dErrors.CodeConfiguration, "MEDISYNC_ENCRYPTION_SECRET is required outside development mode")
		}
		secret = "dev-encryption-secret"
	}

	signingKey := os.Getenv("MEDISYNC_JWT_SIGNING_KEY")
	if signingKey == "" {
		if !development {
			return Server{}, dErrors.New(dErrors.CodeConfiguration, "MEDISYNC_JWT_SIGNING_KEY is required outside development mode")
		}
		signingKey = "dev-signing-key"
	}

	accessTTL := durationFromEnv("MEDISYNC_ACCESS_TOKEN_TTL", defaultAccessTokenTTL)
	refreshTTL := durationFromEnv("MEDISYNC_REFRESH_TOKEN_TTL", defaultRefreshTokenTTL)
	resetTTL := durationFromEnv("MEDISYNC_RESET_TICKET_TTL", defaultResetTicketTTL)

	lockoutThreshold := defaultLockoutThreshold
	if v := os.Getenv("MEDISYNC_LOCKOUT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			lockoutThreshold = n
		}
	}

	return Server{
		Addr:             addr,
		Development:      development,
		EncryptionSecret: secret,
		JWTSigningKey:    signingKey,
		AccessTokenTTL:   accessTTL,
		RefreshTokenTTL:  refreshTTL,
		ResetTicketTTL:   resetTTL,
		LockoutThreshold: lockoutThreshold,
	}, nil
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
