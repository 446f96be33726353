package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mahfuz-rahman/clinicsched/libs/db"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

// Record-level errors for the simple CRUD stores.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const patientColumns = `id, full_name, email, phone, date_of_birth,
	street, city, state, postal_code, country,
	gender, emergency_contact, emergency_phone, is_active, created_at, updated_at`

// PatientRepository stores patient records. Deletion is soft: rows keep their
// history, reads filter on is_active.
type PatientRepository struct {
	pool *db.Pool
}

func NewPatientRepository(pool *db.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) Create(ctx context.Context, p model.Patient) (model.Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients
			(full_name, email, phone, date_of_birth, street, city, state, postal_code, country,
			 gender, emergency_contact, emergency_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+patientColumns+`
	`, p.FullName, p.Email, p.Phone, p.DateOfBirth,
		p.Address.Street, p.Address.City, p.Address.State, p.Address.PostalCode, p.Address.Country,
		string(p.Gender), p.EmergencyContact, p.EmergencyPhone)
	return scanPatient(row)
}

func (r *PatientRepository) Get(ctx context.Context, id int64) (model.Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1 AND is_active
	`, id)
	return scanPatient(row)
}

func (r *PatientRepository) List(ctx context.Context, limit int) ([]model.Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE is_active
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}

func (r *PatientRepository) Update(ctx context.Context, p model.Patient) (model.Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET full_name = $2,
			email = $3,
			phone = $4,
			date_of_birth = $5,
			street = $6, city = $7, state = $8, postal_code = $9, country = $10,
			gender = $11,
			emergency_contact = $12,
			emergency_phone = $13,
			updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING `+patientColumns+`
	`, p.ID, p.FullName, p.Email, p.Phone, p.DateOfBirth,
		p.Address.Street, p.Address.City, p.Address.State, p.Address.PostalCode, p.Address.Country,
		string(p.Gender), p.EmergencyContact, p.EmergencyPhone)
	return scanPatient(row)
}

// SoftDelete flips is_active instead of removing the row.
func (r *PatientRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: patient %d", ErrRecordNotFound, id)
	}
	return nil
}

func scanPatient(row pgx.Row) (model.Patient, error) {
	var p model.Patient
	var gender string
	err := row.Scan(
		&p.ID, &p.FullName, &p.Email, &p.Phone, &p.DateOfBirth,
		&p.Address.Street, &p.Address.City, &p.Address.State, &p.Address.PostalCode, &p.Address.Country,
		&gender, &p.EmergencyContact, &p.EmergencyPhone, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Patient{}, mapRecordErr(err)
	}
	p.Gender = model.Gender(gender)
	return p, nil
}

func mapRecordErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}
