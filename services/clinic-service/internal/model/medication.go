package model

import (
	"fmt"
	"time"
)

type MedicationForm string

const (
	FormTablet    MedicationForm = "TABLET"
	FormCapsule   MedicationForm = "CAPSULE"
	FormLiquid    MedicationForm = "LIQUID"
	FormInjection MedicationForm = "INJECTION"
	FormTopical   MedicationForm = "TOPICAL"
)

func ParseMedicationForm(raw string) (MedicationForm, error) {
	switch MedicationForm(raw) {
	case FormTablet, FormCapsule, FormLiquid, FormInjection, FormTopical:
		return MedicationForm(raw), nil
	}
	return "", fmt.Errorf("unknown medication form %q", raw)
}

// Medication is a catalog record, soft-deleted like patients.
type Medication struct {
	ID           int64
	Name         string
	Dosage       string
	Instructions string
	Form         MedicationForm
	Category     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
