// Package service exposes the record operations the trust core protects:
// every mutation flows through the unit-of-work store, which encrypts
// sensitive fields and writes the matching audit entries in the same commit.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"medisync/internal/audit"
	"medisync/internal/platform/tracer"
	"medisync/internal/records/models"
	"medisync/internal/records/store"
	dErrors "medisync/pkg/domain-errors"
)

// AuditLog is the read side of the audit trail.
type AuditLog interface {
	ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]audit.Entry, error)
}

type Service struct {
	store    store.Store
	auditLog AuditLog
	logger   *slog.Logger
	tracer   tracer.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func NewService(recordStore store.Store, auditLog AuditLog, opts ...Option) *Service {
	svc := &Service{
		store:    recordStore,
		auditLog: auditLog,
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

// CreatePatient admits a new patient. The MRN is the public lookup key and
// must be unique.
func (s *Service) CreatePatient(ctx context.Context, attribution store.Attribution, patient *models.Patient) (err error) {
	ctx, span := s.tracer.Start(ctx, "records.create_patient",
		tracer.String("patient_ref", tracer.HashPatientRef(patient.MRN)))
	defer func() { span.End(err) }()

	if patient.MRN == "" {
		return dErrors.New(dErrors.CodeValidation, "medical record number is required")
	}
	_, err = s.store.FindPatientByMRN(ctx, patient.MRN)
	if err == nil {
		return dErrors.New(dErrors.CodeConflict, "medical record number already in use")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	err = s.store.Run(ctx, attribution, func(tx store.Tx) error {
		return tx.CreatePatient(patient)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "patient created", "patient_id", patient.ID.String())
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	return s.store.GetPatient(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*models.Patient, error) {
	return s.store.FindPatientByMRN(ctx, mrn)
}

// UpdatePatient loads the patient inside a unit of work, applies the caller's
// mutation, and commits. The store snapshots the plaintext before the
// mutation so only actually-changed attributes land in the audit diff.
func (s *Service) UpdatePatient(ctx context.Context, attribution store.Attribution, id uuid.UUID, mutate func(*models.Patient) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "records.update_patient")
	defer func() { span.End(err) }()

	return s.store.Run(ctx, attribution, func(tx store.Tx) error {
		patient, err := tx.GetPatient(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(patient); err != nil {
			return err
		}
		return tx.UpdatePatient(patient)
	})
}

func (s *Service) DeletePatient(ctx context.Context, attribution store.Attribution, id uuid.UUID) (err error) {
	ctx, span := s.tracer.Start(ctx, "records.delete_patient")
	defer func() { span.End(err) }()

	return s.store.Run(ctx, attribution, func(tx store.Tx) error {
		return tx.DeletePatient(ctx, id)
	})
}

// AddMedicalRecord appends one clinical entry to an existing patient's
// history.
func (s *Service) AddMedicalRecord(ctx context.Context, attribution store.Attribution, record *models.MedicalRecord) (err error) {
	ctx, span := s.tracer.Start(ctx, "records.add_medical_record")
	defer func() { span.End(err) }()

	if _, err = s.store.GetPatient(ctx, record.PatientID); err != nil {
		return err
	}
	return s.store.Run(ctx, attribution, func(tx store.Tx) error {
		return tx.CreateMedicalRecord(record)
	})
}

func (s *Service) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*models.MedicalRecord, error) {
	return s.store.GetMedicalRecord(ctx, id)
}

func (s *Service) ListPatientRecords(ctx context.Context, patientID uuid.UUID) ([]*models.MedicalRecord, error) {
	return s.store.ListMedicalRecordsByPatient(ctx, patientID)
}

// PatientHistory returns the audit trail for one patient, oldest first.
func (s *Service) PatientHistory(ctx context.Context, patientID uuid.UUID) ([]audit.Entry, error) {
	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.auditLog.ListByEntity(ctx, patient.AuditEntityType(), patient.AuditEntityID())
}

// ActorActivity returns every audit entry attributed to one user.
func (s *Service) ActorActivity(ctx context.Context, actorID uuid.UUID) ([]audit.Entry, error) {
	return s.auditLog.ListByActor(ctx, actorID)
}

// RecordBackup logs a completed backup run. Backup logs are operational
// bookkeeping and bypass the audit trail.
func (s *Service) RecordBackup(ctx context.Context, log *models.BackupLog) error {
	return s.store.Run(ctx, store.Attribution{}, func(tx store.Tx) error {
		return tx.CreateBackupLog(log)
	})
}
