package model

import "time"

type Doctor struct {
	ID             int64
	Name           string
	Specialization string
	Email          string
	Phone          string
	Gender         Gender
	LicenseNumber  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
