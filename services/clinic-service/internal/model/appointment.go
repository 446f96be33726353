package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment. SCHEDULED and RESCHEDULED
// are active; the rest are terminal.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusNoShow      Status = "NO_SHOW"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled, StatusNoShow:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

// Active reports whether the appointment can still change state.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return !s.Active()
}

// Appointment holds identity, participant references, timing and status.
// Patient and doctor records are not owned here; only their ids are carried.
// CreatedAt/UpdatedAt are assigned by the store, never by business logic.
type Appointment struct {
	ID          int64
	PatientID   int64
	DoctorID    int64
	ScheduledAt time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Same reports entity identity: two persisted appointments are the same entity
// iff they carry the same non-zero id.
func (a Appointment) Same(other Appointment) bool {
	return a.ID != 0 && a.ID == other.ID
}
