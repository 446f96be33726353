package model

import "time"

type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderOther       Gender = "OTHER"
	GenderUnspecified Gender = "UNSPECIFIED"
)

type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Patient is a clinic patient record. Deletion is soft: IsActive flips to
// false and reads filter on it.
type Patient struct {
	ID               int64
	FullName         string
	Email            string
	Phone            string
	DateOfBirth      time.Time
	Address          Address
	Gender           Gender
	EmergencyContact string
	EmergencyPhone   string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
