package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the trust core.
type Metrics struct {
	LoginsSucceeded prometheus.Counter
	AuthFailures    prometheus.Counter
	AccountsLocked  prometheus.Counter
	TokensIssued    prometheus.Counter
	TokensRotated   prometheus.Counter
	TokenReuses     prometheus.Counter

	AuditEntries *prometheus.CounterVec

	FieldEncryptions   prometheus.Counter
	FieldDecryptions   prometheus.Counter
	DecryptionFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		LoginsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_logins_succeeded_total",
			Help: "Total number of successful logins",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		AccountsLocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_accounts_locked_total",
			Help: "Total number of accounts locked after repeated failures",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_tokens_issued_total",
			Help: "Total number of access/refresh token pairs issued",
		}),
		TokensRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_tokens_rotated_total",
			Help: "Total number of refresh token rotations",
		}),
		TokenReuses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_token_reuses_total",
			Help: "Total number of detected refresh token reuse attempts",
		}),
		AuditEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medisync_audit_entries_total",
			Help: "Total number of audit entries written, labeled by event kind",
		}, []string{"kind"}),
		FieldEncryptions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_field_encryptions_total",
			Help: "Total number of field-level encryption operations",
		}),
		FieldDecryptions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_field_decryptions_total",
			Help: "Total number of field-level decryption operations",
		}),
		DecryptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medisync_decryption_failures_total",
			Help: "Total number of failed field decryptions (corrupt or tampered ciphertext)",
		}),
	}
}

func (m *Metrics) IncrementLoginsSucceeded() {
	m.LoginsSucceeded.Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementAccountsLocked() {
	m.AccountsLocked.Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}

func (m *Metrics) IncrementTokensRotated() {
	m.TokensRotated.Inc()
}

func (m *Metrics) IncrementTokenReuses() {
	m.TokenReuses.Inc()
}

// IncrementAuditEntries records one audit entry with its event kind label.
func (m *Metrics) IncrementAuditEntries(kind string) {
	m.AuditEntries.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementFieldEncryptions() {
	m.FieldEncryptions.Inc()
}

func (m *Metrics) IncrementFieldDecryptions() {
	m.FieldDecryptions.Inc()
}

func (m *Metrics) IncrementDecryptionFailures() {
	m.DecryptionFailures.Inc()
}
