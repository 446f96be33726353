package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mahfuz-rahman/clinicsched/libs/db"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

const doctorColumns = `id, name, specialization, email, phone, gender, license_number, created_at, updated_at`

type DoctorRepository struct {
	pool *db.Pool
}

func NewDoctorRepository(pool *db.Pool) *DoctorRepository {
	return &DoctorRepository{pool: pool}
}

func (r *DoctorRepository) Create(ctx context.Context, d model.Doctor) (model.Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (name, specialization, email, phone, gender, license_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+doctorColumns+`
	`, d.Name, d.Specialization, d.Email, d.Phone, string(d.Gender), d.LicenseNumber)
	return scanDoctor(row)
}

func (r *DoctorRepository) Get(ctx context.Context, id int64) (model.Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *DoctorRepository) List(ctx context.Context, limit int) ([]model.Doctor, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []model.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return doctors, nil
}

func (r *DoctorRepository) Update(ctx context.Context, d model.Doctor) (model.Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET name = $2,
			specialization = $3,
			email = $4,
			phone = $5,
			gender = $6,
			license_number = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING `+doctorColumns+`
	`, d.ID, d.Name, d.Specialization, d.Email, d.Phone, string(d.Gender), d.LicenseNumber)
	return scanDoctor(row)
}

func (r *DoctorRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return mapRecordErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func scanDoctor(row pgx.Row) (model.Doctor, error) {
	var d model.Doctor
	var gender string
	err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.Email, &d.Phone, &gender, &d.LicenseNumber, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Doctor{}, mapRecordErr(err)
	}
	d.Gender = model.Gender(gender)
	return d, nil
}
