package scheduling

import (
	"fmt"
	"time"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

type EventKind string

const (
	EventCancel     EventKind = "cancel"
	EventReschedule EventKind = "reschedule"
	EventComplete   EventKind = "complete"
	EventNoShow     EventKind = "mark_no_show"
)

// Event is a requested state change. NewTime is only meaningful for
// EventReschedule.
type Event struct {
	Kind    EventKind
	NewTime time.Time
}

// Transition applies ev to appt and returns the updated appointment, without
// touching any store. The clock is an explicit input so guards are
// deterministic under test. RESCHEDULED behaves exactly like SCHEDULED for
// further transitions; CANCELLED, COMPLETED and NO_SHOW permit none.
func Transition(appt model.Appointment, ev Event, now time.Time, p Policy) (model.Appointment, error) {
	if appt.Status.Terminal() {
		return appt, fmt.Errorf("%w: appointment %d is %s and not in a changeable state",
			ErrInvalidTransition, appt.ID, appt.Status)
	}

	switch ev.Kind {
	case EventCancel:
		if !p.Cancellable(appt.ScheduledAt, now) {
			return appt, fmt.Errorf("%w: cancellation window has passed (appointments require %s notice)",
				ErrInvalidTransition, p.CancellationNotice)
		}
		appt.Status = model.StatusCancelled
		return appt, nil

	case EventReschedule:
		if !ev.NewTime.After(now) {
			return appt, fmt.Errorf("%w: new appointment time must be in the future", ErrInvalidArgument)
		}
		if !p.WithinBusinessHours(ev.NewTime) {
			return appt, fmt.Errorf("%w: new appointment time must fall between %d:00 and the %d:00 hour",
				ErrInvalidArgument, p.OpeningHour, p.ClosingHour)
		}
		appt.ScheduledAt = ev.NewTime
		appt.Status = model.StatusRescheduled
		return appt, nil

	case EventComplete:
		appt.Status = model.StatusCompleted
		return appt, nil

	case EventNoShow:
		appt.Status = model.StatusNoShow
		return appt, nil
	}

	return appt, fmt.Errorf("%w: unknown event %q", ErrInvalidArgument, ev.Kind)
}
