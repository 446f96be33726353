package scheduling

import (
	"fmt"
	"time"
)

// Policy defaults. All thresholds live here, not in orchestration code.
const (
	DefaultOpeningHour        = 8
	DefaultClosingHour        = 17 // inclusive: the 17:xx hour is bookable, 18:00 is not
	DefaultCancellationNotice = 2 * time.Hour
	DefaultConflictHalfWindow = 30 * time.Minute
)

// Policy is the stateless scheduling rule set. The zero value is not usable;
// construct with DefaultPolicy and override fields as needed.
type Policy struct {
	OpeningHour        int
	ClosingHour        int
	CancellationNotice time.Duration
	ConflictHalfWindow time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		OpeningHour:        DefaultOpeningHour,
		ClosingHour:        DefaultClosingHour,
		CancellationNotice: DefaultCancellationNotice,
		ConflictHalfWindow: DefaultConflictHalfWindow,
	}
}

// WithinBusinessHours checks the hour component only. Both bounds are
// inclusive, matching the clinic's historical behavior (17:59 passes).
func (p Policy) WithinBusinessHours(t time.Time) bool {
	h := t.Hour()
	return h >= p.OpeningHour && h <= p.ClosingHour
}

// ValidateStart enforces the creation-time rules: not in the past, within
// business hours.
func (p Policy) ValidateStart(t, now time.Time) error {
	if t.Before(now) {
		return fmt.Errorf("%w: appointment time cannot be in the past", ErrInvalidArgument)
	}
	if !p.WithinBusinessHours(t) {
		return fmt.Errorf("%w: appointments must be scheduled between %d:00 and the %d:00 hour",
			ErrInvalidArgument, p.OpeningHour, p.ClosingHour)
	}
	return nil
}

// Cancellable is the single cancellation-notice guard, shared by the
// transition function and the service path.
func (p Policy) Cancellable(scheduledAt, now time.Time) bool {
	return scheduledAt.After(now.Add(p.CancellationNotice))
}

// ConflictBounds returns the closed window around a candidate time within
// which another non-cancelled appointment for the same patient is disallowed.
// The window is symmetric and measured from the candidate, so detection is
// commutative regardless of which appointment is new.
func (p Policy) ConflictBounds(t time.Time) (from, to time.Time) {
	return t.Add(-p.ConflictHalfWindow), t.Add(p.ConflictHalfWindow)
}
