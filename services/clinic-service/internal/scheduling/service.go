package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

var tracer = otel.Tracer("clinicsched.internal.scheduling")

// Event types emitted on the outbox, one Kafka topic per type.
const (
	EventTypeScheduled   = "clinic.appointment.scheduled.v1"
	EventTypeUpdated     = "clinic.appointment.updated.v1"
	EventTypeCancelled   = "clinic.appointment.cancelled.v1"
	EventTypeRescheduled = "clinic.appointment.rescheduled.v1"
	EventTypeCompleted   = "clinic.appointment.completed.v1"
	EventTypeNoShow      = "clinic.appointment.no_show.v1"
)

// Scheduler orchestrates appointment creation, update, cancellation and
// rescheduling: policy validation, conflict detection and the status state
// machine, all against a transactional store.
type Scheduler struct {
	store  Store
	policy Policy
	clock  Clock
	logger *slog.Logger
}

type Option func(*Scheduler)

func WithPolicy(p Policy) Option { return func(s *Scheduler) { s.policy = p } }

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

func NewScheduler(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		policy: DefaultPolicy(),
		clock:  UTCClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Policy() Policy { return s.policy }

// Create validates timing, checks for a conflicting appointment for the
// patient inside one transaction, and persists a new SCHEDULED row. Either
// the full effect commits or none of it does.
func (s *Scheduler) Create(ctx context.Context, patientID, doctorID int64, at time.Time) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.patient_id", patientID))

	if patientID <= 0 || doctorID <= 0 {
		return model.Appointment{}, fmt.Errorf("%w: patient and doctor are required", ErrInvalidArgument)
	}
	now := s.clock()
	if err := s.policy.ValidateStart(at, now); err != nil {
		return model.Appointment{}, err
	}

	var created model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := s.ensureNoConflict(ctx, tx, patientID, at, 0); err != nil {
			return err
		}
		var err error
		created, err = tx.Create(ctx, model.Appointment{
			PatientID:   patientID,
			DoctorID:    doctorID,
			ScheduledAt: at,
			Status:      model.StatusScheduled,
		})
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, EventTypeScheduled, created)
	})
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}
	s.logger.Info("appointment scheduled",
		"appointment_id", created.ID,
		"patient_id", created.PatientID,
		"doctor_id", created.DoctorID,
		"scheduled_at", created.ScheduledAt,
	)
	return created, nil
}

// Update overwrites participants, time and status. A cancelled appointment
// cannot be updated; timing and conflicts are re-validated exactly as in
// Create, with the appointment itself excluded from the conflict set.
func (s *Scheduler) Update(ctx context.Context, id, patientID, doctorID int64, at time.Time, status model.Status) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.appointment_id", id))

	if patientID <= 0 || doctorID <= 0 {
		return model.Appointment{}, fmt.Errorf("%w: patient and doctor are required", ErrInvalidArgument)
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	now := s.clock()
	if err := s.policy.ValidateStart(at, now); err != nil {
		return model.Appointment{}, err
	}

	var updated model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == model.StatusCancelled {
			return fmt.Errorf("%w: cannot update a cancelled appointment", ErrInvalidTransition)
		}
		if err := s.ensureNoConflict(ctx, tx, patientID, at, id); err != nil {
			return err
		}
		cur.PatientID = patientID
		cur.DoctorID = doctorID
		cur.ScheduledAt = at
		cur.Status = status
		updated, err = tx.Update(ctx, cur)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, EventTypeUpdated, updated)
	})
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}
	return updated, nil
}

// Cancel applies the cancel transition under the minimum-notice guard.
func (s *Scheduler) Cancel(ctx context.Context, id int64) (model.Appointment, error) {
	return s.transition(ctx, id, Event{Kind: EventCancel}, EventTypeCancelled)
}

// Reschedule moves an active appointment to newTime and marks it RESCHEDULED.
func (s *Scheduler) Reschedule(ctx context.Context, id int64, newTime time.Time) (model.Appointment, error) {
	return s.transition(ctx, id, Event{Kind: EventReschedule, NewTime: newTime}, EventTypeRescheduled)
}

// Complete marks an active appointment COMPLETED. Administrative: no timing guard.
func (s *Scheduler) Complete(ctx context.Context, id int64) (model.Appointment, error) {
	return s.transition(ctx, id, Event{Kind: EventComplete}, EventTypeCompleted)
}

// MarkNoShow marks an active appointment NO_SHOW.
func (s *Scheduler) MarkNoShow(ctx context.Context, id int64) (model.Appointment, error) {
	return s.transition(ctx, id, Event{Kind: EventNoShow}, EventTypeNoShow)
}

func (s *Scheduler) transition(ctx context.Context, id int64, ev Event, eventType string) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling."+string(ev.Kind))
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.appointment_id", id))

	now := s.clock()
	var out model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transition(cur, ev, now, s.policy)
		if err != nil {
			return err
		}
		out, err = tx.Update(ctx, next)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, eventType, out)
	})
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}
	s.logger.Info("appointment transition applied",
		"appointment_id", out.ID, "event", string(ev.Kind), "status", string(out.Status))
	return out, nil
}

// Delete removes the row entirely. Retention is the store's concern; the only
// scheduling invariant here is existence.
func (s *Scheduler) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.store.Delete(ctx, id)
}

// Read-only projections, delegated to the store.

func (s *Scheduler) Get(ctx context.Context, id int64) (model.Appointment, error) {
	return s.store.Get(ctx, id)
}

func (s *Scheduler) ListByPatient(ctx context.Context, patientID int64) ([]model.Appointment, error) {
	return s.store.ListByPatient(ctx, patientID)
}

func (s *Scheduler) ListByDoctor(ctx context.Context, doctorID int64) ([]model.Appointment, error) {
	return s.store.ListByDoctor(ctx, doctorID)
}

func (s *Scheduler) ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error) {
	return s.store.ListByStatus(ctx, status)
}

// ListByDoctorOnDate projects one civil day in the canonical clock's location.
func (s *Scheduler) ListByDoctorOnDate(ctx context.Context, doctorID int64, day time.Time) ([]model.Appointment, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.store.ListByDoctorBetween(ctx, doctorID, from, from.AddDate(0, 0, 1))
}

func (s *Scheduler) ListUpcoming(ctx context.Context) ([]model.Appointment, error) {
	return s.store.ListUpcoming(ctx, s.clock())
}

func (s *Scheduler) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	return s.store.CountByStatus(ctx, status)
}

// ensureNoConflict serializes on the patient's schedule, then checks the
// symmetric conflict window. Must run inside the transaction that performs
// the write, so a concurrent writer for the same patient is either observed
// or queued behind the lock.
func (s *Scheduler) ensureNoConflict(ctx context.Context, tx Tx, patientID int64, at time.Time, excludeID int64) error {
	if err := tx.LockPatientSchedule(ctx, patientID); err != nil {
		return err
	}
	from, to := s.policy.ConflictBounds(at)
	conflict, err := tx.ExistsConflicting(ctx, patientID, from, to, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("%w: patient %d already has an appointment within %s of %s",
			ErrConflict, patientID, s.policy.ConflictHalfWindow, at.Format(time.RFC3339))
	}
	return nil
}

func (s *Scheduler) appendEvent(ctx context.Context, tx Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"doctor_id":      appt.DoctorID,
		"scheduled_at":   appt.ScheduledAt.UTC().Format(time.RFC3339),
		"status":         string(appt.Status),
	})
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, DomainEvent{
		Type:          eventType,
		AppointmentID: appt.ID,
		Payload:       payload,
	})
}
