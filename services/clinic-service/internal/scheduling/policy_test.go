package scheduling

import (
	"errors"
	"testing"
	"time"
)

func TestWithinBusinessHours_Bounds(t *testing.T) {
	p := DefaultPolicy()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before opening", day.Add(7*time.Hour + 59*time.Minute), false},
		{"at opening", day.Add(8 * time.Hour), true},
		{"midday", day.Add(12 * time.Hour), true},
		{"last bookable minute", day.Add(17*time.Hour + 59*time.Minute), true},
		{"at 18:00", day.Add(18 * time.Hour), false},
		{"midnight", day, false},
	}
	for _, tc := range cases {
		if got := p.WithinBusinessHours(tc.at); got != tc.want {
			t.Errorf("%s: WithinBusinessHours(%s) = %v, want %v", tc.name, tc.at.Format("15:04"), got, tc.want)
		}
	}
}

func TestValidateStart(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := p.ValidateStart(now, now); err != nil {
		t.Fatalf("time == now should be allowed for creation: %v", err)
	}
	if err := p.ValidateStart(now.Add(-time.Minute), now); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("past time: want ErrInvalidArgument, got %v", err)
	}
	evening := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	if err := p.ValidateStart(evening, now); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("out-of-hours time: want ErrInvalidArgument, got %v", err)
	}
}

func TestCancellable_NoticeWindow(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if !p.Cancellable(now.Add(3*time.Hour), now) {
		t.Fatal("appointment 3h away should be cancellable")
	}
	if p.Cancellable(now.Add(time.Hour), now) {
		t.Fatal("appointment 1h away should not be cancellable")
	}
	// Exactly at the notice boundary: not strictly after now+2h, so not cancellable.
	if p.Cancellable(now.Add(2*time.Hour), now) {
		t.Fatal("appointment exactly 2h away should not be cancellable")
	}
}

func TestConflictBounds_Symmetric(t *testing.T) {
	p := DefaultPolicy()
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	from, to := p.ConflictBounds(at)
	if !from.Equal(at.Add(-30 * time.Minute)) {
		t.Fatalf("lower bound = %s, want candidate-30m", from)
	}
	if !to.Equal(at.Add(30 * time.Minute)) {
		t.Fatalf("upper bound = %s, want candidate+30m", to)
	}
}
