// Package store persists protected record entities with field-level
// encryption and a pre-commit audit hook. The in-memory implementation
// mirrors the transactional contract a relational store would provide: the
// audit entries for a unit of work are written inside the same commit as the
// mutations they describe, and a failed audit write aborts everything.
package store

import (
	"context"

	"github.com/google/uuid"

	"medisync/internal/records/models"
)

// Attribution identifies who is performing a unit of work, for audit
// purposes.
type Attribution struct {
	ActorID   *uuid.UUID
	IPAddress *string
	UserAgent *string
}

// Tx is the mutation surface of one unit of work. All writes staged through
// it become visible atomically on commit, together with their audit entries,
// or not at all.
type Tx interface {
	CreatePatient(patient *models.Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	UpdatePatient(patient *models.Patient) error
	DeletePatient(ctx context.Context, id uuid.UUID) error

	CreateMedicalRecord(record *models.MedicalRecord) error
	GetMedicalRecord(ctx context.Context, id uuid.UUID) (*models.MedicalRecord, error)
	UpdateMedicalRecord(record *models.MedicalRecord) error
	DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error

	CreateBackupLog(log *models.BackupLog) error
}

// Store is the unit-of-work entry point.
type Store interface {
	Run(ctx context.Context, attribution Attribution, fn func(tx Tx) error) error
	GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	FindPatientByMRN(ctx context.Context, mrn string) (*models.Patient, error)
	GetMedicalRecord(ctx context.Context, id uuid.UUID) (*models.MedicalRecord, error)
	ListMedicalRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]*models.MedicalRecord, error)
}
