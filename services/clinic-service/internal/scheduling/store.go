package scheduling

import (
	"context"
	"time"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

// Clock supplies "now" to every guard. Injected so tests can pin time.
type Clock func() time.Time

func UTCClock() time.Time { return time.Now().UTC() }

// DomainEvent is a lifecycle event recorded in the same transaction as the
// state change it describes. The store routes it to the outbox.
type DomainEvent struct {
	Type          string
	AppointmentID int64
	Payload       []byte
}

// Tx is the transaction-scoped slice of the store. The conflict check and the
// subsequent write must both run on the same Tx: LockPatientSchedule is the
// serialization point that closes the check-then-act race for a patient.
type Tx interface {
	LockPatientSchedule(ctx context.Context, patientID int64) error
	GetForUpdate(ctx context.Context, id int64) (model.Appointment, error)
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Update(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	ExistsConflicting(ctx context.Context, patientID int64, from, to time.Time, excludeID int64) (bool, error)
	AppendEvent(ctx context.Context, evt DomainEvent) error
}

// Store is the persistence collaborator. InTx commits iff fn returns nil.
// Implementations map their not-found condition to ErrNotFound and opaque
// faults to ErrStorage.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Get(ctx context.Context, id int64) (model.Appointment, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, patientID int64) ([]model.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]model.Appointment, error)
	ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error)
	ListByDoctorBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]model.Appointment, error)
	ListUpcoming(ctx context.Context, after time.Time) ([]model.Appointment, error)
	CountByStatus(ctx context.Context, status model.Status) (int64, error)
}
