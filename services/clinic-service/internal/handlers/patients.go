package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/storage"
)

type PatientHandler struct {
	repo     *storage.PatientRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewPatientHandler(repo *storage.PatientRepository, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type patientRequest struct {
	FullName         string `json:"full_name" validate:"required,min=1,max=200"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required,min=7,max=32"`
	DateOfBirth      string `json:"date_of_birth" validate:"required"`
	Street           string `json:"street" validate:"max=200"`
	City             string `json:"city" validate:"max=100"`
	State            string `json:"state" validate:"max=100"`
	PostalCode       string `json:"postal_code" validate:"max=20"`
	Country          string `json:"country" validate:"max=100"`
	Gender           string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER UNSPECIFIED"`
	EmergencyContact string `json:"emergency_contact" validate:"max=200"`
	EmergencyPhone   string `json:"emergency_phone" validate:"max=32"`
}

type patientResponse struct {
	ID               int64  `json:"id"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"date_of_birth"`
	Street           string `json:"street,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	Country          string `json:"country,omitempty"`
	Gender           string `json:"gender"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	EmergencyPhone   string `json:"emergency_phone,omitempty"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toPatientResponse(p model.Patient) patientResponse {
	return patientResponse{
		ID:               p.ID,
		FullName:         p.FullName,
		Email:            p.Email,
		Phone:            p.Phone,
		DateOfBirth:      p.DateOfBirth.UTC().Format("2006-01-02"),
		Street:           p.Address.Street,
		City:             p.Address.City,
		State:            p.Address.State,
		PostalCode:       p.Address.PostalCode,
		Country:          p.Address.Country,
		Gender:           string(p.Gender),
		EmergencyContact: p.EmergencyContact,
		EmergencyPhone:   p.EmergencyPhone,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *PatientHandler) decode(w http.ResponseWriter, r *http.Request) (model.Patient, bool) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return model.Patient{}, false
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Gender == "" {
		req.Gender = string(model.GenderUnspecified)
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return model.Patient{}, false
	}
	dob, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.DateOfBirth), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date_of_birth (YYYY-MM-DD expected)")
		return model.Patient{}, false
	}
	if !dob.Before(time.Now().UTC()) {
		writeError(w, http.StatusBadRequest, "date_of_birth must be in the past")
		return model.Patient{}, false
	}

	return model.Patient{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: dob,
		Address: model.Address{
			Street:     strings.TrimSpace(req.Street),
			City:       strings.TrimSpace(req.City),
			State:      strings.TrimSpace(req.State),
			PostalCode: strings.TrimSpace(req.PostalCode),
			Country:    strings.TrimSpace(req.Country),
		},
		Gender:           model.Gender(req.Gender),
		EmergencyContact: strings.TrimSpace(req.EmergencyContact),
		EmergencyPhone:   strings.TrimSpace(req.EmergencyPhone),
	}, true
}

func (h *PatientHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p, ok := h.decode(w, r)
		if !ok {
			return
		}
		created, err := h.repo.Create(r.Context(), p)
		if err != nil {
			writeRecordError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatientResponse(created))

	case http.MethodGet:
		if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw != "" {
			id, ok := parseID(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid id")
				return
			}
			p, err := h.repo.Get(r.Context(), id)
			if err != nil {
				writeRecordError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toPatientResponse(p))
			return
		}

		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		patients, err := h.repo.List(r.Context(), limit)
		if err != nil {
			writeRecordError(w, h.logger, err)
			return
		}
		items := make([]patientResponse, 0, len(patients))
		for _, p := range patients {
			items = append(items, toPatientResponse(p))
		}
		writeJSON(w, http.StatusOK, items)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	p.ID = id
	updated, err := h.repo.Update(r.Context(), p)
	if err != nil {
		writeRecordError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(updated))
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.repo.SoftDelete(r.Context(), id); err != nil {
		writeRecordError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
