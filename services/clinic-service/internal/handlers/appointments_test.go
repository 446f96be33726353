package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/scheduling"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeStore is a map-backed scheduling.Store. It acts as its own Tx: the
// mutex held across InTx stands in for the per-patient advisory lock.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	appts  map[int64]model.Appointment
	events []scheduling.DomainEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, appts: make(map[int64]model.Appointment)}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, s)
}

func (s *fakeStore) LockPatientSchedule(ctx context.Context, patientID int64) error { return nil }

func (s *fakeStore) GetForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	appt, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	return appt, nil
}

func (s *fakeStore) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	appt.ID = s.nextID
	s.nextID++
	appt.CreatedAt = testNow
	appt.UpdatedAt = testNow
	s.appts[appt.ID] = appt
	return appt, nil
}

func (s *fakeStore) Update(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	if _, ok := s.appts[appt.ID]; !ok {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	appt.UpdatedAt = testNow
	s.appts[appt.ID] = appt
	return appt, nil
}

func (s *fakeStore) ExistsConflicting(ctx context.Context, patientID int64, from, to time.Time, excludeID int64) (bool, error) {
	for _, a := range s.appts {
		if a.PatientID != patientID || a.ID == excludeID || a.Status == model.StatusCancelled {
			continue
		}
		if !a.ScheduledAt.Before(from) && !a.ScheduledAt.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) AppendEvent(ctx context.Context, evt scheduling.DomainEvent) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetForUpdate(ctx, id)
}

func (s *fakeStore) Exists(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.appts[id]
	return ok, nil
}

func (s *fakeStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.appts, id)
	return nil
}

func (s *fakeStore) ListByPatient(ctx context.Context, patientID int64) ([]model.Appointment, error) {
	return s.filter(func(a model.Appointment) bool { return a.PatientID == patientID }), nil
}

func (s *fakeStore) ListByDoctor(ctx context.Context, doctorID int64) ([]model.Appointment, error) {
	return s.filter(func(a model.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (s *fakeStore) ListByStatus(ctx context.Context, status model.Status) ([]model.Appointment, error) {
	return s.filter(func(a model.Appointment) bool { return a.Status == status }), nil
}

func (s *fakeStore) ListByDoctorBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]model.Appointment, error) {
	return s.filter(func(a model.Appointment) bool {
		return a.DoctorID == doctorID && !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to)
	}), nil
}

func (s *fakeStore) ListUpcoming(ctx context.Context, after time.Time) ([]model.Appointment, error) {
	return s.filter(func(a model.Appointment) bool {
		return a.Status == model.StatusScheduled && a.ScheduledAt.After(after)
	}), nil
}

func (s *fakeStore) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	return int64(len(s.filter(func(a model.Appointment) bool { return a.Status == status }))), nil
}

func (s *fakeStore) filter(keep func(model.Appointment) bool) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

var _ scheduling.Store = (*fakeStore)(nil)
var _ scheduling.Tx = (*fakeStore)(nil)

func newTestHandler(t *testing.T) (*AppointmentHandler, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	scheduler := scheduling.NewScheduler(store,
		scheduling.WithClock(func() time.Time { return testNow }),
		scheduling.WithLogger(slog.New(slog.NewTextHandler(testWriter{t}, nil))),
	)
	return NewAppointmentHandler(scheduler, slog.New(slog.NewTextHandler(testWriter{t}, nil))), store
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeItem(t *testing.T, rec *httptest.ResponseRecorder) appointmentItem {
	t.Helper()
	var item appointmentItem
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return item
}

func TestCreateAppointment(t *testing.T) {
	h, store := newTestHandler(t)

	rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	if item.ID == 0 || item.Status != string(model.StatusScheduled) {
		t.Fatalf("unexpected item %+v", item)
	}
	if len(store.events) != 1 || store.events[0].Type != scheduling.EventTypeScheduled {
		t.Fatalf("expected one scheduled event, got %+v", store.events)
	}
}

func TestCreateAppointmentBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing ids", `{"scheduled_at":"2026-03-11T10:00:00Z"}`},
		{"bad time", `{"patient_id":1,"doctor_id":2,"scheduled_at":"tomorrow"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.Collection, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateAppointmentOutsideHours(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T07:30:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	h, _ := newTestHandler(t)

	first := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d", first.Code)
	}
	second := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":3,"scheduled_at":"2026-03-11T10:15:00Z"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("second create: status = %d, want 409 (body %s)", second.Code, second.Body.String())
	}
}

func TestCancelAppointment(t *testing.T) {
	h, _ := newTestHandler(t)

	created := decodeItem(t, postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`))
	rec := postJSON(t, h.Cancel, `{"appointment_id":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	if item.ID != created.ID || item.Status != string(model.StatusCancelled) {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestCancelWithinNoticeWindow(t *testing.T) {
	h, _ := newTestHandler(t)

	// 10:00 same day: only an hour of notice left at the pinned clock.
	if rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-10T10:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	rec := postJSON(t, h.Cancel, `{"appointment_id":1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestCancelTwiceRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	if rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	if rec := postJSON(t, h.Cancel, `{"appointment_id":1}`); rec.Code != http.StatusOK {
		t.Fatalf("first cancel: status = %d", rec.Code)
	}
	rec := postJSON(t, h.Cancel, `{"appointment_id":1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second cancel: status = %d, want 422", rec.Code)
	}
}

func TestRescheduleAppointment(t *testing.T) {
	h, _ := newTestHandler(t)

	if rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	rec := postJSON(t, h.Reschedule, `{"appointment_id":1,"new_time":"2026-03-12T11:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	item := decodeItem(t, rec)
	if item.Status != string(model.StatusRescheduled) || item.ScheduledAt != "2026-03-12T11:00:00Z" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestActionUnknownAppointment(t *testing.T) {
	h, _ := newTestHandler(t)

	for name, fn := range map[string]http.HandlerFunc{
		"cancel":   h.Cancel,
		"complete": h.Complete,
		"no-show":  h.NoShow,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(t, fn, `{"appointment_id":99}`)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestListByPatient(t *testing.T) {
	h, _ := newTestHandler(t)

	if rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	if rec := postJSON(t, h.Collection, `{"patient_id":7,"doctor_id":2,"scheduled_at":"2026-03-11T13:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/?patient_id=1", nil)
	rec := httptest.NewRecorder()
	h.Collection(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var items []appointmentItem
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].PatientID != 1 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestListRequiresFilter(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Collection(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStats(t *testing.T) {
	h, _ := newTestHandler(t)

	if rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/?status=SCHEDULED", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "SCHEDULED" || resp.Count != 1 {
		t.Fatalf("unexpected stats %+v", resp)
	}
}

func TestDeleteAppointment(t *testing.T) {
	h, store := newTestHandler(t)

	if rec := postJSON(t, h.Collection, `{"patient_id":1,"doctor_id":2,"scheduled_at":"2026-03-11T10:00:00Z"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	rec := postJSON(t, h.Delete, `{"appointment_id":1}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if ok, _ := store.Exists(context.Background(), 1); ok {
		t.Fatal("row still present after delete")
	}

	rec = postJSON(t, h.Delete, `{"appointment_id":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	h.Collection(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.Cancel(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("cancel GET: status = %d, want 405", rec.Code)
	}
}
