package main

import "medisync/internal/platform/metrics"

// metricsObserver feeds codec and audit recorder callbacks into prometheus
// counters without coupling those packages to the metrics implementation.
type metricsObserver struct {
	metrics *metrics.Metrics
}

func (o metricsObserver) FieldEncrypted()   { o.metrics.IncrementFieldEncryptions() }
func (o metricsObserver) FieldDecrypted()   { o.metrics.IncrementFieldDecryptions() }
func (o metricsObserver) DecryptionFailed() { o.metrics.IncrementDecryptionFailures() }

func (o metricsObserver) EntryRecorded(kind string) {
	o.metrics.IncrementAuditEntries(kind)
}
