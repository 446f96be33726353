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

type MedicationHandler struct {
	repo     *storage.MedicationRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewMedicationHandler(repo *storage.MedicationRepository, logger *slog.Logger) *MedicationHandler {
	return &MedicationHandler{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type medicationRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	Dosage       string `json:"dosage" validate:"required,min=1,max=100"`
	Instructions string `json:"instructions" validate:"max=2000"`
	Form         string `json:"form" validate:"required,oneof=TABLET CAPSULE LIQUID INJECTION TOPICAL"`
	Category     string `json:"category" validate:"max=100"`
}

type medicationResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions,omitempty"`
	Form         string `json:"form"`
	Category     string `json:"category,omitempty"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toMedicationResponse(m model.Medication) medicationResponse {
	return medicationResponse{
		ID:           m.ID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Instructions: m.Instructions,
		Form:         string(m.Form),
		Category:     m.Category,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *MedicationHandler) decode(w http.ResponseWriter, r *http.Request) (model.Medication, bool) {
	var req medicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return model.Medication{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Dosage = strings.TrimSpace(req.Dosage)
	req.Form = strings.TrimSpace(req.Form)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return model.Medication{}, false
	}

	return model.Medication{
		Name:         req.Name,
		Dosage:       req.Dosage,
		Instructions: strings.TrimSpace(req.Instructions),
		Form:         model.MedicationForm(req.Form),
		Category:     strings.TrimSpace(req.Category),
	}, true
}

func (h *MedicationHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		m, ok := h.decode(w, r)
		if !ok {
			return
		}
		created, err := h.repo.Create(r.Context(), m)
		if err != nil {
			writeRecordError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMedicationResponse(created))

	case http.MethodGet:
		if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw != "" {
			id, ok := parseID(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid id")
				return
			}
			m, err := h.repo.Get(r.Context(), id)
			if err != nil {
				writeRecordError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toMedicationResponse(m))
			return
		}

		category := strings.TrimSpace(r.URL.Query().Get("category"))
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		meds, err := h.repo.List(r.Context(), category, limit)
		if err != nil {
			writeRecordError(w, h.logger, err)
			return
		}
		items := make([]medicationResponse, 0, len(meds))
		for _, m := range meds {
			items = append(items, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, items)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	m, ok := h.decode(w, r)
	if !ok {
		return
	}
	m.ID = id
	updated, err := h.repo.Update(r.Context(), m)
	if err != nil {
		writeRecordError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicationResponse(updated))
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
