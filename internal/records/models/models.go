// Package models defines the protected record entities. Sensitive fields
// (names, identifiers, contact data, clinical text) are plaintext on these
// structs; the store encrypts them at the persistence boundary and the audit
// recorder diffs them here, before encryption.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Timestamps is the shared created/updated pair carried by every entity.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTimestamps lets the store maintain timestamps per entity type without
// reflection.
type HasTimestamps interface {
	TouchCreated(now time.Time)
	TouchUpdated(now time.Time)
}

func (t *Timestamps) TouchCreated(now time.Time) {
	t.CreatedAt = now
	t.UpdatedAt = now
}

func (t *Timestamps) TouchUpdated(now time.Time) {
	t.UpdatedAt = now
}

// AuditOwner is the shared created-by/updated-by pair for entities whose
// changes are attributed to a user.
type AuditOwner struct {
	CreatedByID *uuid.UUID
	UpdatedByID *uuid.UUID
}

// HasAuditOwner lets the unit of work stamp actor attribution per entity
// type.
type HasAuditOwner interface {
	SetCreatedBy(id *uuid.UUID)
	SetUpdatedBy(id *uuid.UUID)
}

func (o *AuditOwner) SetCreatedBy(id *uuid.UUID) { o.CreatedByID = id }
func (o *AuditOwner) SetUpdatedBy(id *uuid.UUID) { o.UpdatedByID = id }

// Patient holds demographic and insurance information. Everything beyond the
// MRN and coarse clinical attributes is encrypted at rest.
type Patient struct {
	ID          uuid.UUID
	MRN         string // medical record number, the public lookup key
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Gender      string
	BloodType   string
	SSN         *string
	Address     *string
	Phone       *string
	Email       *string

	Timestamps
	AuditOwner
}

func (p *Patient) AuditEntityType() string { return "patient" }
func (p *Patient) AuditEntityID() string   { return p.ID.String() }

// AuditValues returns the plaintext snapshot used for audit diffing.
func (p *Patient) AuditValues() map[string]string {
	values := map[string]string{
		"mrn":           p.MRN,
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"date_of_birth": p.DateOfBirth.UTC().Format(time.RFC3339),
		"gender":        p.Gender,
		"blood_type":    p.BloodType,
	}
	putOptional(values, "ssn", p.SSN)
	putOptional(values, "address", p.Address)
	putOptional(values, "phone", p.Phone)
	putOptional(values, "email", p.Email)
	return values
}

// MedicalRecord is one clinical entry in a patient's history.
type MedicalRecord struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	RecordType  string
	Description string
	Diagnosis   *string
	Treatment   *string
	Notes       *string
	RecordDate  time.Time

	Timestamps
	AuditOwner
}

func (r *MedicalRecord) AuditEntityType() string { return "medical_record" }
func (r *MedicalRecord) AuditEntityID() string   { return r.ID.String() }

func (r *MedicalRecord) AuditValues() map[string]string {
	values := map[string]string{
		"patient_id":  r.PatientID.String(),
		"record_type": r.RecordType,
		"description": r.Description,
		"record_date": r.RecordDate.UTC().Format(time.RFC3339),
	}
	putOptional(values, "diagnosis", r.Diagnosis)
	putOptional(values, "treatment", r.Treatment)
	putOptional(values, "notes", r.Notes)
	return values
}

// BackupLog tracks backup runs. It is operational bookkeeping, not protected
// data, and is explicitly exempt from the audit trail.
type BackupLog struct {
	ID         uuid.UUID
	BackupType string
	FilePath   string
	FileHash   string
	SizeBytes  int64
	Status     string

	Timestamps
}

func (b *BackupLog) AuditEntityType() string { return "backup_log" }
func (b *BackupLog) AuditEntityID() string   { return b.ID.String() }

func (b *BackupLog) AuditValues() map[string]string {
	return map[string]string{
		"backup_type": b.BackupType,
		"file_path":   b.FilePath,
		"status":      b.Status,
	}
}

// AuditExempt marks backup logs as unaudited.
func (b *BackupLog) AuditExempt() {}

func putOptional(values map[string]string, key string, value *string) {
	if value != nil {
		values[key] = *value
	}
}
