package store

import (
	"context"

	"github.com/google/uuid"

	"medisync/internal/records/models"
)

// memoryTx stages mutations for one unit of work. Reads go through the
// store's committed state; writes stay local until commit. Loading an entity
// snapshots its plaintext attribute values so the audit recorder can diff
// updates against what the caller actually saw.
type memoryTx struct {
	store       *InMemoryStore
	attribution Attribution

	originals map[uuid.UUID]map[string]string

	newPatients     []*models.Patient
	dirtyPatients   []*models.Patient
	deletedPatients []*models.Patient

	newRecords     []*models.MedicalRecord
	dirtyRecords   []*models.MedicalRecord
	deletedRecords []*models.MedicalRecord

	newBackups []*models.BackupLog
}

func (tx *memoryTx) CreatePatient(patient *models.Patient) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	tx.newPatients = append(tx.newPatients, patient)
	return nil
}

func (tx *memoryTx) GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	patient, err := tx.store.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.originals[patient.ID] = patient.AuditValues()
	return patient, nil
}

func (tx *memoryTx) UpdatePatient(patient *models.Patient) error {
	tx.dirtyPatients = append(tx.dirtyPatients, patient)
	return nil
}

func (tx *memoryTx) DeletePatient(ctx context.Context, id uuid.UUID) error {
	patient, err := tx.store.GetPatient(ctx, id)
	if err != nil {
		return err
	}
	tx.deletedPatients = append(tx.deletedPatients, patient)
	return nil
}

func (tx *memoryTx) CreateMedicalRecord(record *models.MedicalRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	tx.newRecords = append(tx.newRecords, record)
	return nil
}

func (tx *memoryTx) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*models.MedicalRecord, error) {
	record, err := tx.store.GetMedicalRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.originals[record.ID] = record.AuditValues()
	return record, nil
}

func (tx *memoryTx) UpdateMedicalRecord(record *models.MedicalRecord) error {
	tx.dirtyRecords = append(tx.dirtyRecords, record)
	return nil
}

func (tx *memoryTx) DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error {
	record, err := tx.store.GetMedicalRecord(ctx, id)
	if err != nil {
		return err
	}
	tx.deletedRecords = append(tx.deletedRecords, record)
	return nil
}

func (tx *memoryTx) CreateBackupLog(log *models.BackupLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	tx.newBackups = append(tx.newBackups, log)
	return nil
}
