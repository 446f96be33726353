package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mahfuz-rahman/clinicsched/libs/db"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/model"
)

const medicationColumns = `id, name, dosage, instructions, form, category, is_active, created_at, updated_at`

// MedicationRepository stores the medication catalog, soft-deleted like
// patients.
type MedicationRepository struct {
	pool *db.Pool
}

func NewMedicationRepository(pool *db.Pool) *MedicationRepository {
	return &MedicationRepository{pool: pool}
}

func (r *MedicationRepository) Create(ctx context.Context, m model.Medication) (model.Medication, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO medications (name, dosage, instructions, form, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+medicationColumns+`
	`, m.Name, m.Dosage, m.Instructions, string(m.Form), m.Category)
	return scanMedication(row)
}

func (r *MedicationRepository) Get(ctx context.Context, id int64) (model.Medication, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE id = $1 AND is_active
	`, id)
	return scanMedication(row)
}

func (r *MedicationRepository) List(ctx context.Context, category string, limit int) ([]model.Medication, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE is_active
			AND ($1 = '' OR category = $1)
		ORDER BY name
		LIMIT $2
	`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []model.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return meds, nil
}

func (r *MedicationRepository) Update(ctx context.Context, m model.Medication) (model.Medication, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE medications
		SET name = $2,
			dosage = $3,
			instructions = $4,
			form = $5,
			category = $6,
			updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING `+medicationColumns+`
	`, m.ID, m.Name, m.Dosage, m.Instructions, string(m.Form), m.Category)
	return scanMedication(row)
}

func (r *MedicationRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medications
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: medication %d", ErrRecordNotFound, id)
	}
	return nil
}

func scanMedication(row pgx.Row) (model.Medication, error) {
	var m model.Medication
	var form string
	err := row.Scan(&m.ID, &m.Name, &m.Dosage, &m.Instructions, &form, &m.Category, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Medication{}, mapRecordErr(err)
	}
	m.Form = model.MedicationForm(form)
	return m, nil
}
