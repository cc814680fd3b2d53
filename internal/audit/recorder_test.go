package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "medisync/pkg/domain-errors"
)

type fakeEntity struct {
	kind   string
	id     string
	values map[string]string
}

func (e *fakeEntity) AuditEntityType() string        { return e.kind }
func (e *fakeEntity) AuditEntityID() string          { return e.id }
func (e *fakeEntity) AuditValues() map[string]string { return e.values }

type exemptEntity struct {
	fakeEntity
}

func (e *exemptEntity) AuditExempt() {}

type failingStore struct{}

func (failingStore) Append(context.Context, Entry) error { return errors.New("disk full") }
func (failingStore) ListByEntity(context.Context, string, string) ([]Entry, error) {
	return nil, nil
}
func (failingStore) ListByActor(context.Context, uuid.UUID) ([]Entry, error) { return nil, nil }

type RecorderSuite struct {
	suite.Suite
	store    *InMemoryStore
	recorder *Recorder
	actor    uuid.UUID
}

func (s *RecorderSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.actor = uuid.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.recorder = NewRecorder(s.store,
		WithLogger(logger),
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) changeSet() ChangeSet {
	ip := "10.0.0.7"
	return ChangeSet{ActorID: &s.actor, IPAddress: &ip}
}

func (s *RecorderSuite) TestCreateEntry() {
	set := s.changeSet()
	set.New = []Auditable{&fakeEntity{
		kind:   "patient",
		id:     "p-1",
		values: map[string]string{"first_name": "Jane", "ssn": "123-45-6789"},
	}}

	s.Require().NoError(s.recorder.Record(context.Background(), set))

	entries := s.store.All()
	s.Require().Len(entries, 1)
	s.Equal(EventCreate, entries[0].Kind)
	s.Empty(entries[0].OldValues)
	s.Equal("Jane", entries[0].NewValues["first_name"])
	s.Equal(&s.actor, entries[0].ActorID)
}

func (s *RecorderSuite) TestUpdateEntryOnlyChangedKeys() {
	set := s.changeSet()
	set.Dirty = []Change{{
		Entity: &fakeEntity{
			kind:   "patient",
			id:     "p-1",
			values: map[string]string{"first_name": "Jane", "phone": "555-0199", "ssn": "123-45-6789"},
		},
		Original: map[string]string{"first_name": "Jane", "phone": "555-0100", "ssn": "123-45-6789"},
	}}

	s.Require().NoError(s.recorder.Record(context.Background(), set))

	entries := s.store.All()
	s.Require().Len(entries, 1)
	s.Equal(EventUpdate, entries[0].Kind)
	s.Equal(map[string]string{"phone": "555-0100"}, entries[0].OldValues)
	s.Equal(map[string]string{"phone": "555-0199"}, entries[0].NewValues)
}

func (s *RecorderSuite) TestUpdateWithoutChangesRecordsNothing() {
	values := map[string]string{"first_name": "Jane"}
	set := s.changeSet()
	set.Dirty = []Change{{
		Entity:   &fakeEntity{kind: "patient", id: "p-1", values: values},
		Original: map[string]string{"first_name": "Jane"},
	}}

	s.Require().NoError(s.recorder.Record(context.Background(), set))
	s.Empty(s.store.All())
}

func (s *RecorderSuite) TestDeleteEntry() {
	set := s.changeSet()
	set.Deleted = []Auditable{&fakeEntity{
		kind:   "medical_record",
		id:     "r-9",
		values: map[string]string{"diagnosis": "hypertension"},
	}}

	s.Require().NoError(s.recorder.Record(context.Background(), set))

	entries := s.store.All()
	s.Require().Len(entries, 1)
	s.Equal(EventDelete, entries[0].Kind)
	s.Empty(entries[0].NewValues)
	s.Equal("hypertension", entries[0].OldValues["diagnosis"])
}

func (s *RecorderSuite) TestOneEntryPerEntity() {
	set := s.changeSet()
	set.New = []Auditable{
		&fakeEntity{kind: "patient", id: "p-1", values: map[string]string{"a": "1", "b": "2"}},
		&fakeEntity{kind: "patient", id: "p-2", values: map[string]string{"a": "3"}},
	}
	set.Deleted = []Auditable{
		&fakeEntity{kind: "patient", id: "p-3", values: map[string]string{"a": "4"}},
	}

	s.Require().NoError(s.recorder.Record(context.Background(), set))
	s.Len(s.store.All(), 3)
}

func (s *RecorderSuite) TestExemptEntitySkipped() {
	set := s.changeSet()
	set.New = []Auditable{&exemptEntity{fakeEntity{
		kind:   "backup_log",
		id:     "b-1",
		values: map[string]string{"path": "/backups/full.tar"},
	}}}

	s.Require().NoError(s.recorder.Record(context.Background(), set))
	s.Empty(s.store.All())
}

func (s *RecorderSuite) TestAppendFailureSurfacesAuditWriteFailed() {
	recorder := NewRecorder(failingStore{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	set := s.changeSet()
	set.New = []Auditable{&fakeEntity{kind: "patient", id: "p-1", values: map[string]string{"a": "1"}}}

	err := recorder.Record(context.Background(), set)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
}

func (s *RecorderSuite) TestRecordEvent() {
	set := s.changeSet()
	s.Require().NoError(s.recorder.RecordEvent(context.Background(), EventLogin, "credential", s.actor.String(), set))

	entries := s.store.All()
	s.Require().Len(entries, 1)
	s.Equal(EventLogin, entries[0].Kind)
	s.Equal("credential", entries[0].EntityType)
}

func (s *RecorderSuite) TestListByActor() {
	set := s.changeSet()
	s.Require().NoError(s.recorder.RecordEvent(context.Background(), EventRegister, "credential", "c-1", set))

	other := ChangeSet{}
	s.Require().NoError(s.recorder.RecordEvent(context.Background(), EventLoginFailed, "credential", "c-2", other))

	entries, err := s.store.ListByActor(context.Background(), s.actor)
	s.Require().NoError(err)
	s.Len(entries, 1)
}
