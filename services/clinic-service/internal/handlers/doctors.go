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

type DoctorHandler struct {
	repo     *storage.DoctorRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewDoctorHandler(repo *storage.DoctorRepository, logger *slog.Logger) *DoctorHandler {
	return &DoctorHandler{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type doctorRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	Specialization string `json:"specialization" validate:"required,min=1,max=200"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,min=7,max=32"`
	Gender         string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER UNSPECIFIED"`
	LicenseNumber  string `json:"license_number" validate:"required,min=1,max=64"`
}

type doctorResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Gender         string `json:"gender"`
	LicenseNumber  string `json:"license_number"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toDoctorResponse(d model.Doctor) doctorResponse {
	return doctorResponse{
		ID:             d.ID,
		Name:           d.Name,
		Specialization: d.Specialization,
		Email:          d.Email,
		Phone:          d.Phone,
		Gender:         string(d.Gender),
		LicenseNumber:  d.LicenseNumber,
		CreatedAt:      d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *DoctorHandler) decode(w http.ResponseWriter, r *http.Request) (model.Doctor, bool) {
	var req doctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return model.Doctor{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Specialization = strings.TrimSpace(req.Specialization)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
	if req.Gender == "" {
		req.Gender = string(model.GenderUnspecified)
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return model.Doctor{}, false
	}

	return model.Doctor{
		Name:           req.Name,
		Specialization: req.Specialization,
		Email:          req.Email,
		Phone:          req.Phone,
		Gender:         model.Gender(req.Gender),
		LicenseNumber:  req.LicenseNumber,
	}, true
}

func (h *DoctorHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		d, ok := h.decode(w, r)
		if !ok {
			return
		}
		created, err := h.repo.Create(r.Context(), d)
		if err != nil {
			writeRecordError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDoctorResponse(created))

	case http.MethodGet:
		if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw != "" {
			id, ok := parseID(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid id")
				return
			}
			d, err := h.repo.Get(r.Context(), id)
			if err != nil {
				writeRecordError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toDoctorResponse(d))
			return
		}

		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		doctors, err := h.repo.List(r.Context(), limit)
		if err != nil {
			writeRecordError(w, h.logger, err)
			return
		}
		items := make([]doctorResponse, 0, len(doctors))
		for _, d := range doctors {
			items = append(items, toDoctorResponse(d))
		}
		writeJSON(w, http.StatusOK, items)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	d, ok := h.decode(w, r)
	if !ok {
		return
	}
	d.ID = id
	updated, err := h.repo.Update(r.Context(), d)
	if err != nil {
		writeRecordError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDoctorResponse(updated))
}

func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeRecordError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
