package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-queue/internal/model"
)

type patientRepository struct {
	db sqlx.ExtContext
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, user_id, full_name, age, gender, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.UserID,
		patient.FullName,
		patient.Age,
		patient.Gender,
		patient.Phone,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", translate(err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, user_id, full_name, age, gender, phone
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	if err := sqlx.GetContext(ctx, r.db, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", translate(err))
	}
	return &patient, nil
}
