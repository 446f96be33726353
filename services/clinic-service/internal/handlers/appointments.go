package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/scheduling"
)

type AppointmentHandler struct {
	scheduler *scheduling.Scheduler
	logger    *slog.Logger
}

func NewAppointmentHandler(scheduler *scheduling.Scheduler, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{scheduler: scheduler, logger: logger}
}

type createAppointmentRequest struct {
	PatientID   int64  `json:"patient_id"`
	DoctorID    int64  `json:"doctor_id"`
	ScheduledAt string `json:"scheduled_at"`
}

type updateAppointmentRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	PatientID     int64  `json:"patient_id"`
	DoctorID      int64  `json:"doctor_id"`
	ScheduledAt   string `json:"scheduled_at"`
	Status        string `json:"status"`
}

type appointmentActionRequest struct {
	AppointmentID int64 `json:"appointment_id"`
}

type rescheduleAppointmentRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	NewTime       string `json:"new_time"`
}

func (h *AppointmentHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.PatientID <= 0 || req.DoctorID <= 0 {
		writeError(w, http.StatusBadRequest, "patient_id and doctor_id are required")
		return
	}
	scheduledAt, ok := parseTime(req.ScheduledAt)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid scheduled_at (RFC3339 expected)")
		return
	}

	appt, err := h.scheduler.Create(r.Context(), req.PatientID, req.DoctorID, scheduledAt)
	if err != nil {
		writeSchedulingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if raw := strings.TrimSpace(q.Get("id")); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		appt, err := h.scheduler.Get(ctx, id)
		if err != nil {
			writeSchedulingError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentItem(appt))
		return
	}

	if raw := strings.TrimSpace(q.Get("patient_id")); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid patient_id")
			return
		}
		appts, err := h.scheduler.ListByPatient(ctx, id)
		if err != nil {
			writeSchedulingError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentItems(appts))
		return
	}

	if raw := strings.TrimSpace(q.Get("doctor_id")); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid doctor_id")
			return
		}
		if dateStr := strings.TrimSpace(q.Get("date")); dateStr != "" {
			day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid date (YYYY-MM-DD expected)")
				return
			}
			appts, err := h.scheduler.ListByDoctorOnDate(ctx, id, day)
			if err != nil {
				writeSchedulingError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentItems(appts))
			return
		}
		appts, err := h.scheduler.ListByDoctor(ctx, id)
		if err != nil {
			writeSchedulingError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentItems(appts))
		return
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appts, err := h.scheduler.ListByStatus(ctx, status)
		if err != nil {
			writeSchedulingError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentItems(appts))
		return
	}

	if strings.TrimSpace(q.Get("upcoming")) == "true" {
		appts, err := h.scheduler.ListUpcoming(ctx)
		if err != nil {
			writeSchedulingError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentItems(appts))
		return
	}

	writeError(w, http.StatusBadRequest, "one of id, patient_id, doctor_id, status, or upcoming=true is required")
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 || req.PatientID <= 0 || req.DoctorID <= 0 {
		writeError(w, http.StatusBadRequest, "appointment_id, patient_id and doctor_id are required")
		return
	}
	scheduledAt, ok := parseTime(req.ScheduledAt)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid scheduled_at (RFC3339 expected)")
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.scheduler.Update(r.Context(), req.AppointmentID, req.PatientID, req.DoctorID, scheduledAt, status)
	if err != nil {
		writeSchedulingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(r *http.Request, id int64) (model.Appointment, error) {
		return h.scheduler.Cancel(r.Context(), id)
	})
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(r *http.Request, id int64) (model.Appointment, error) {
		return h.scheduler.Complete(r.Context(), id)
	})
}

func (h *AppointmentHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(r *http.Request, id int64) (model.Appointment, error) {
		return h.scheduler.MarkNoShow(r.Context(), id)
	})
}

func (h *AppointmentHandler) action(w http.ResponseWriter, r *http.Request, op func(*http.Request, int64) (model.Appointment, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req appointmentActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 {
		writeError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}

	appt, err := op(r, req.AppointmentID)
	if err != nil {
		writeSchedulingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 {
		writeError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}
	newTime, ok := parseTime(req.NewTime)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid new_time (RFC3339 expected)")
		return
	}

	appt, err := h.scheduler.Reschedule(r.Context(), req.AppointmentID, newTime)
	if err != nil {
		writeSchedulingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req appointmentActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 {
		writeError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}

	if err := h.scheduler.Delete(r.Context(), req.AppointmentID); err != nil {
		writeSchedulingError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	status, err := model.ParseStatus(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.scheduler.CountByStatus(r.Context(), status)
	if err != nil {
		writeSchedulingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(status), "count": count})
}
