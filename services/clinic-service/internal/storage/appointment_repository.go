package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mahfuz-rahman/clinicsched/libs/db"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/outbox"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/scheduling"
)

// Advisory lock class for per-patient schedule serialization. The second key
// is the patient id, so concurrent writers for the same patient queue behind
// each other while different patients proceed in parallel.
const lockClassPatientSchedule = 0x43A1

const apptColumns = `id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at`

// AppointmentRepository is the pgx-backed scheduling store. Lifecycle events
// are written through the outbox repository inside the same transaction as
// the row change.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

func (r *AppointmentRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	err := r.pool.WithinTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &apptTx{tx: tx, outbox: r.outbox})
	})
	return wrapStorageErr(err)
}

type apptTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *apptTx) LockPatientSchedule(ctx context.Context, patientID int64) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`,
		int32(lockClassPatientSchedule), int32(patientID))
	return wrapStorageErr(err)
}

func (t *apptTx) GetForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (t *apptTx) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, scheduled_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+apptColumns+`
	`, appt.PatientID, appt.DoctorID, appt.ScheduledAt, string(appt.Status))
	return scanAppointment(row)
}

func (t *apptTx) Update(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
			doctor_id = $3,
			scheduled_at = $4,
			status = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING `+apptColumns+`
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.ScheduledAt, string(appt.Status))
	return scanAppointment(row)
}

func (t *apptTx) ExistsConflicting(ctx context.Context, patientID int64, from, to time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE patient_id = $1
				AND status <> 'CANCELLED'
				AND scheduled_at BETWEEN $2 AND $3
				AND ($4 = 0 OR id <> $4)
		)
	`, patientID, from, to, excludeID).Scan(&exists)
	if err != nil {
		return false, wrapStorageErr(err)
	}
	return exists, nil
}

func (t *apptTx) AppendEvent(ctx context.Context, evt scheduling.DomainEvent) error {
	err := t.outbox.Insert(ctx, t.tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   strconv.FormatInt(evt.AppointmentID, 10),
		EventType:     evt.Type,
		Payload:       evt.Payload,
	})
	return wrapStorageErr(err)
}

func (r *AppointmentRepository) Get(ctx context.Context, id int64) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *AppointmentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, wrapStorageErr(err)
	}
	return exists, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return wrapStorageErr(err)
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID int64) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_at
	`, patientID)
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY scheduled_at
	`, doctorID)
}

func (r *AppointmentRepository) ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE status = $1
		ORDER BY scheduled_at
	`, string(status))
}

func (r *AppointmentRepository) ListByDoctorBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
			AND scheduled_at >= $2
			AND scheduled_at < $3
		ORDER BY scheduled_at
	`, doctorID, from, to)
}

func (r *AppointmentRepository) ListUpcoming(ctx context.Context, after time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE status IN ('SCHEDULED', 'RESCHEDULED')
			AND scheduled_at > $1
		ORDER BY scheduled_at
	`, after)
}

func (r *AppointmentRepository) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, wrapStorageErr(err)
	}
	return n, nil
}

var _ scheduling.Store = (*AppointmentRepository)(nil)

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, wrapStorageErr(rows.Err())
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.ScheduledAt,
		&status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, wrapStorageErr(err)
	}
	appt.Status = model.Status(status)
	return appt, nil
}

// wrapStorageErr maps pgx failures onto the scheduler's error kinds: missing
// rows to ErrNotFound, exclusion-constraint violations (the double-booking
// backstop) to ErrConflict, anything else to an opaque ErrStorage.
func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	// Scheduler-level errors pass through untouched when a transaction body
	// returns one of them.
	for _, sentinel := range []error{
		scheduling.ErrNotFound,
		scheduling.ErrInvalidArgument,
		scheduling.ErrConflict,
		scheduling.ErrInvalidTransition,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w", scheduling.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return fmt.Errorf("%w: overlapping appointment rejected by the database", scheduling.ErrConflict)
	}
	return fmt.Errorf("%w: %v", scheduling.ErrStorage, err)
}
