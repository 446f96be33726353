package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

var transitionNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func activeAppt(status model.Status) model.Appointment {
	return model.Appointment{
		ID:          7,
		PatientID:   1,
		DoctorID:    2,
		ScheduledAt: transitionNow.Add(4 * time.Hour),
		Status:      status,
	}
}

func TestTransition_CancelWithNotice(t *testing.T) {
	got, err := Transition(activeAppt(model.StatusScheduled), Event{Kind: EventCancel}, transitionNow, DefaultPolicy())
	if err != nil {
		t.Fatalf("cancel with 4h notice should succeed: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}
}

func TestTransition_CancelInsideNoticeWindow(t *testing.T) {
	appt := activeAppt(model.StatusScheduled)
	appt.ScheduledAt = transitionNow.Add(time.Hour)

	_, err := Transition(appt, Event{Kind: EventCancel}, transitionNow, DefaultPolicy())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_RescheduledBehavesLikeScheduled(t *testing.T) {
	for _, kind := range []EventKind{EventCancel, EventComplete, EventNoShow} {
		if _, err := Transition(activeAppt(model.StatusRescheduled), Event{Kind: kind}, transitionNow, DefaultPolicy()); err != nil {
			t.Fatalf("%s from RESCHEDULED should succeed: %v", kind, err)
		}
	}
	newTime := transitionNow.Add(26 * time.Hour) // next day 11:00
	got, err := Transition(activeAppt(model.StatusRescheduled), Event{Kind: EventReschedule, NewTime: newTime}, transitionNow, DefaultPolicy())
	if err != nil {
		t.Fatalf("reschedule from RESCHEDULED should succeed: %v", err)
	}
	if !got.ScheduledAt.Equal(newTime) || got.Status != model.StatusRescheduled {
		t.Fatalf("got %s at %s, want RESCHEDULED at %s", got.Status, got.ScheduledAt, newTime)
	}
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	terminal := []model.Status{model.StatusCancelled, model.StatusCompleted, model.StatusNoShow}
	events := []Event{
		{Kind: EventCancel},
		{Kind: EventReschedule, NewTime: transitionNow.Add(3 * time.Hour)},
		{Kind: EventComplete},
		{Kind: EventNoShow},
	}
	for _, st := range terminal {
		for _, ev := range events {
			if _, err := Transition(activeAppt(st), ev, transitionNow, DefaultPolicy()); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s from %s: want ErrInvalidTransition, got %v", ev.Kind, st, err)
			}
		}
	}
}

func TestTransition_RescheduleGuards(t *testing.T) {
	p := DefaultPolicy()

	_, err := Transition(activeAppt(model.StatusScheduled), Event{Kind: EventReschedule, NewTime: transitionNow}, transitionNow, p)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("newTime == now: want ErrInvalidArgument, got %v", err)
	}

	evening := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	_, err = Transition(activeAppt(model.StatusScheduled), Event{Kind: EventReschedule, NewTime: evening}, transitionNow, p)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("out-of-hours newTime: want ErrInvalidArgument, got %v", err)
	}
}

func TestTransition_CompleteHasNoTimingGuard(t *testing.T) {
	appt := activeAppt(model.StatusScheduled)
	appt.ScheduledAt = transitionNow.Add(-2 * time.Hour) // already in the past

	got, err := Transition(appt, Event{Kind: EventComplete}, transitionNow, DefaultPolicy())
	if err != nil {
		t.Fatalf("complete is administrative, should succeed: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
}
