package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medisync/internal/audit"
	"medisync/internal/auth/models"
	"medisync/internal/jwttoken"
	"medisync/internal/platform/metrics"
	"medisync/internal/platform/tracer"
)

// CredentialStore defines the persistence interface for credentials.
// Error Contract: Find methods return store.ErrNotFound when no credential
// exists; ConsumeResetTicket returns store.ErrTicketInvalid for missing,
// expired, or already-used tickets.
type CredentialStore interface {
	Save(ctx context.Context, credential *models.Credential) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Credential, error)
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	ConsumeResetTicket(ctx context.Context, token string, now time.Time) (*models.Credential, error)
}

// RefreshTokenStore tracks issued refresh tokens by jti. Consume must be
// atomic: of any number of concurrent rotations of the same token, exactly
// one succeeds.
type RefreshTokenStore interface {
	Create(ctx context.Context, record *models.RefreshTokenRecord) error
	Consume(ctx context.Context, jti string, now time.Time) (*models.RefreshTokenRecord, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type TokenGenerator interface {
	GenerateAccessToken(userID uuid.UUID) (string, string, error)
	GenerateRefreshToken(userID uuid.UUID) (string, string, error)
	ValidateToken(tokenString string, want jwttoken.TokenKind) (*jwttoken.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// AuditRecorder appends lifecycle entries to the audit trail. Append failures
// carry CodeAuditWriteFailed; the service aborts the credential mutation when
// its audit entry cannot be written.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, kind audit.EventKind, entityType, entityID string, set audit.ChangeSet) error
}

// Notifier delivers the password reset ticket out of band.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetToken string) error
}

const (
	defaultLockoutThreshold = 5
	defaultResetTicketTTL   = 24 * time.Hour

	// entityTypeCredential is the entity type recorded on auth lifecycle
	// audit entries.
	entityTypeCredential = "User"
)

type Service struct {
	credentials   CredentialStore
	refreshTokens RefreshTokenStore
	jwt           TokenGenerator
	recorder      AuditRecorder
	notifier      Notifier

	lockoutThreshold int
	resetTicketTTL   time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLockoutThreshold sets the consecutive failed login count that locks an
// account. Non-positive values keep the default.
func WithLockoutThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.lockoutThreshold = threshold
		}
	}
}

// WithResetTicketTTL sets the validity window of password reset tickets.
func WithResetTicketTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTicketTTL = ttl
		}
	}
}

// WithClock overrides the time source. Tests use this to exercise lockout
// and ticket expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(credentials CredentialStore, refreshTokens RefreshTokenStore, jwt TokenGenerator, recorder AuditRecorder, opts ...Option) *Service {
	svc := &Service{
		credentials:      credentials,
		refreshTokens:    refreshTokens,
		jwt:              jwt,
		recorder:         recorder,
		lockoutThreshold: defaultLockoutThreshold,
		resetTicketTTL:   defaultResetTicketTTL,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tracer == nil {
		svc.tracer = tracer.Noop()
	}
	return svc
}
