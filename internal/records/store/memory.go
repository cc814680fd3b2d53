package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"medisync/internal/audit"
	"medisync/internal/crypto/codec"
	"medisync/internal/records/models"
	dErrors "medisync/pkg/domain-errors"
)

// ErrNotFound is returned when a requested record is not found in the store.
// Services should check for this error using errors.Is.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// Rows hold ciphertext for sensitive columns; only codec round-trips touch
// plaintext. The row types are what a relational schema would store.
type patientRow struct {
	id          uuid.UUID
	mrn         string
	firstName   string
	lastName    string
	dateOfBirth string
	gender      string
	bloodType   string
	ssn         *string
	address     *string
	phone       *string
	email       *string
	createdAt   time.Time
	updatedAt   time.Time
	createdBy   *uuid.UUID
	updatedBy   *uuid.UUID
}

type medicalRecordRow struct {
	id          uuid.UUID
	patientID   uuid.UUID
	recordType  string
	description string
	diagnosis   *string
	treatment   *string
	notes       *string
	recordDate  time.Time
	createdAt   time.Time
	updatedAt   time.Time
	createdBy   *uuid.UUID
	updatedBy   *uuid.UUID
}

// InMemoryStore keeps encrypted rows under a coarse lock. Commit applies a
// unit of work's staged rows only after the audit recorder has accepted the
// change set, which gives the same fail-closed behavior as a database
// transaction wrapping both writes.
type InMemoryStore struct {
	mu       sync.RWMutex
	codec    *codec.Codec
	recorder *audit.Recorder
	now      func() time.Time

	patients map[uuid.UUID]patientRow
	records  map[uuid.UUID]medicalRecordRow
	backups  map[uuid.UUID]models.BackupLog
}

// MemoryOption configures the InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemoryStore(fieldCodec *codec.Codec, recorder *audit.Recorder, opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		codec:    fieldCodec,
		recorder: recorder,
		now:      time.Now,
		patients: make(map[uuid.UUID]patientRow),
		records:  make(map[uuid.UUID]medicalRecordRow),
		backups:  make(map[uuid.UUID]models.BackupLog),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes fn against a unit of work and commits it. Commit order:
// encode staged entities, hand the change set to the audit recorder, then
// apply the rows. Any failure leaves the store untouched.
func (s *InMemoryStore) Run(ctx context.Context, attribution Attribution, fn func(tx Tx) error) error {
	tx := &memoryTx{store: s, attribution: attribution, originals: make(map[uuid.UUID]map[string]string)}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

func (s *InMemoryStore) commit(ctx context.Context, tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	set := audit.ChangeSet{
		ActorID:   tx.attribution.ActorID,
		IPAddress: tx.attribution.IPAddress,
		UserAgent: tx.attribution.UserAgent,
	}

	var patientUpserts []patientRow
	var recordUpserts []medicalRecordRow
	var backupUpserts []models.BackupLog
	var patientDeletes, recordDeletes []uuid.UUID

	for _, p := range tx.newPatients {
		stampCreate(p, tx.attribution.ActorID, now)
		row, err := s.encodePatient(p)
		if err != nil {
			return err
		}
		patientUpserts = append(patientUpserts, row)
		set.New = append(set.New, p)
	}
	for _, p := range tx.dirtyPatients {
		stampUpdate(p, tx.attribution.ActorID, now)
		row, err := s.encodePatient(p)
		if err != nil {
			return err
		}
		patientUpserts = append(patientUpserts, row)
		set.Dirty = append(set.Dirty, audit.Change{Entity: p, Original: tx.originals[p.ID]})
	}
	for _, p := range tx.deletedPatients {
		patientDeletes = append(patientDeletes, p.ID)
		set.Deleted = append(set.Deleted, p)
	}

	for _, r := range tx.newRecords {
		stampCreate(r, tx.attribution.ActorID, now)
		row, err := s.encodeMedicalRecord(r)
		if err != nil {
			return err
		}
		recordUpserts = append(recordUpserts, row)
		set.New = append(set.New, r)
	}
	for _, r := range tx.dirtyRecords {
		stampUpdate(r, tx.attribution.ActorID, now)
		row, err := s.encodeMedicalRecord(r)
		if err != nil {
			return err
		}
		recordUpserts = append(recordUpserts, row)
		set.Dirty = append(set.Dirty, audit.Change{Entity: r, Original: tx.originals[r.ID]})
	}
	for _, r := range tx.deletedRecords {
		recordDeletes = append(recordDeletes, r.ID)
		set.Deleted = append(set.Deleted, r)
	}

	for _, b := range tx.newBackups {
		b.TouchCreated(now)
		backupUpserts = append(backupUpserts, *b)
		set.New = append(set.New, b)
	}

	// Pre-commit audit hook. Failure aborts the whole unit of work: no
	// mutation of protected data is ever visible without its audit entry.
	if err := s.recorder.Record(ctx, set); err != nil {
		return err
	}

	for _, row := range patientUpserts {
		s.patients[row.id] = row
	}
	for _, id := range patientDeletes {
		delete(s.patients, id)
	}
	for _, row := range recordUpserts {
		s.records[row.id] = row
	}
	for _, id := range recordDeletes {
		delete(s.records, id)
	}
	for _, b := range backupUpserts {
		s.backups[b.ID] = b
	}

	return nil
}

func (s *InMemoryStore) GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	s.mu.RLock()
	row, ok := s.patients[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.decodePatient(row)
}

func (s *InMemoryStore) FindPatientByMRN(ctx context.Context, mrn string) (*models.Patient, error) {
	s.mu.RLock()
	var found *patientRow
	for _, row := range s.patients {
		if row.mrn == mrn {
			r := row
			found = &r
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return nil, ErrNotFound
	}
	return s.decodePatient(*found)
}

func (s *InMemoryStore) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*models.MedicalRecord, error) {
	s.mu.RLock()
	row, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.decodeMedicalRecord(row)
}

func (s *InMemoryStore) ListMedicalRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]*models.MedicalRecord, error) {
	s.mu.RLock()
	var rows []medicalRecordRow
	for _, row := range s.records {
		if row.patientID == patientID {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	out := make([]*models.MedicalRecord, 0, len(rows))
	for _, row := range rows {
		record, err := s.decodeMedicalRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *InMemoryStore) encodePatient(p *models.Patient) (patientRow, error) {
	firstName, err := s.codec.EncodeString(&p.FirstName)
	if err != nil {
		return patientRow{}, err
	}
	lastName, err := s.codec.EncodeString(&p.LastName)
	if err != nil {
		return patientRow{}, err
	}
	dob, err := s.codec.EncodeTime(&p.DateOfBirth)
	if err != nil {
		return patientRow{}, err
	}
	ssn, err := s.codec.EncodeString(p.SSN)
	if err != nil {
		return patientRow{}, err
	}
	address, err := s.codec.EncodeString(p.Address)
	if err != nil {
		return patientRow{}, err
	}
	phone, err := s.codec.EncodeString(p.Phone)
	if err != nil {
		return patientRow{}, err
	}
	email, err := s.codec.EncodeString(p.Email)
	if err != nil {
		return patientRow{}, err
	}
	return patientRow{
		id:          p.ID,
		mrn:         p.MRN,
		firstName:   *firstName,
		lastName:    *lastName,
		dateOfBirth: *dob,
		gender:      p.Gender,
		bloodType:   p.BloodType,
		ssn:         ssn,
		address:     address,
		phone:       phone,
		email:       email,
		createdAt:   p.CreatedAt,
		updatedAt:   p.UpdatedAt,
		createdBy:   p.CreatedByID,
		updatedBy:   p.UpdatedByID,
	}, nil
}

func (s *InMemoryStore) decodePatient(row patientRow) (*models.Patient, error) {
	firstName, err := s.codec.DecodeString(&row.firstName)
	if err != nil {
		return nil, err
	}
	lastName, err := s.codec.DecodeString(&row.lastName)
	if err != nil {
		return nil, err
	}
	dob, err := s.codec.DecodeTime(&row.dateOfBirth)
	if err != nil {
		return nil, err
	}
	ssn, err := s.codec.DecodeString(row.ssn)
	if err != nil {
		return nil, err
	}
	address, err := s.codec.DecodeString(row.address)
	if err != nil {
		return nil, err
	}
	phone, err := s.codec.DecodeString(row.phone)
	if err != nil {
		return nil, err
	}
	email, err := s.codec.DecodeString(row.email)
	if err != nil {
		return nil, err
	}
	return &models.Patient{
		ID:          row.id,
		MRN:         row.mrn,
		FirstName:   *firstName,
		LastName:    *lastName,
		DateOfBirth: *dob,
		Gender:      row.gender,
		BloodType:   row.bloodType,
		SSN:         ssn,
		Address:     address,
		Phone:       phone,
		Email:       email,
		Timestamps:  models.Timestamps{CreatedAt: row.createdAt, UpdatedAt: row.updatedAt},
		AuditOwner:  models.AuditOwner{CreatedByID: row.createdBy, UpdatedByID: row.updatedBy},
	}, nil
}

func (s *InMemoryStore) encodeMedicalRecord(r *models.MedicalRecord) (medicalRecordRow, error) {
	description, err := s.codec.EncodeString(&r.Description)
	if err != nil {
		return medicalRecordRow{}, err
	}
	diagnosis, err := s.codec.EncodeString(r.Diagnosis)
	if err != nil {
		return medicalRecordRow{}, err
	}
	treatment, err := s.codec.EncodeString(r.Treatment)
	if err != nil {
		return medicalRecordRow{}, err
	}
	notes, err := s.codec.EncodeString(r.Notes)
	if err != nil {
		return medicalRecordRow{}, err
	}
	return medicalRecordRow{
		id:          r.ID,
		patientID:   r.PatientID,
		recordType:  r.RecordType,
		description: *description,
		diagnosis:   diagnosis,
		treatment:   treatment,
		notes:       notes,
		recordDate:  r.RecordDate,
		createdAt:   r.CreatedAt,
		updatedAt:   r.UpdatedAt,
		createdBy:   r.CreatedByID,
		updatedBy:   r.UpdatedByID,
	}, nil
}

func (s *InMemoryStore) decodeMedicalRecord(row medicalRecordRow) (*models.MedicalRecord, error) {
	description, err := s.codec.DecodeString(&row.description)
	if err != nil {
		return nil, err
	}
	diagnosis, err := s.codec.DecodeString(row.diagnosis)
	if err != nil {
		return nil, err
	}
	treatment, err := s.codec.DecodeString(row.treatment)
	if err != nil {
		return nil, err
	}
	notes, err := s.codec.DecodeString(row.notes)
	if err != nil {
		return nil, err
	}
	return &models.MedicalRecord{
		ID:          row.id,
		PatientID:   row.patientID,
		RecordType:  row.recordType,
		Description: *description,
		Diagnosis:   diagnosis,
		Treatment:   treatment,
		Notes:       notes,
		RecordDate:  row.recordDate,
		Timestamps:  models.Timestamps{CreatedAt: row.createdAt, UpdatedAt: row.updatedAt},
		AuditOwner:  models.AuditOwner{CreatedByID: row.createdBy, UpdatedByID: row.updatedBy},
	}, nil
}

func stampCreate(entity any, actor *uuid.UUID, now time.Time) {
	if ts, ok := entity.(models.HasTimestamps); ok {
		ts.TouchCreated(now)
	}
	if owner, ok := entity.(models.HasAuditOwner); ok {
		owner.SetCreatedBy(actor)
		owner.SetUpdatedBy(actor)
	}
}

func stampUpdate(entity any, actor *uuid.UUID, now time.Time) {
	if ts, ok := entity.(models.HasTimestamps); ok {
		ts.TouchUpdated(now)
	}
	if owner, ok := entity.(models.HasAuditOwner); ok {
		owner.SetUpdatedBy(actor)
	}
}
