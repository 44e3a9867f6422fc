package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-queue/internal/model"
)

const doctorColumns = `
	id, user_id, department_id, full_name,
	COALESCE(specialization, '') AS specialization,
	COALESCE(phone, '') AS phone,
	schedule_start, schedule_end, is_paused, pause_reason`

type doctorRepository struct {
	db sqlx.ExtContext
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err := sqlx.GetContext(ctx, r.db, &doctor, query, id); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", translate(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors`
	var args []interface{}
	if filters != nil && filters.DepartmentID != nil {
		query += ` WHERE department_id = $1`
		args = append(args, *filters.DepartmentID)
	}
	query += ` ORDER BY full_name`

	doctors := []*model.Doctor{}
	if err := sqlx.SelectContext(ctx, r.db, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, start, end model.Clock) error {
	query := `
		UPDATE doctors
		SET schedule_start = $1, schedule_end = $2
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, start, end, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

func (r *doctorRepository) SetPause(ctx context.Context, id uuid.UUID, paused bool, reason *string) error {
	query := `
		UPDATE doctors
		SET is_paused = $1, pause_reason = $2
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, paused, reason, id)
	if err != nil {
		return fmt.Errorf("failed to set pause state: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to set pause state: %w", err)
	}
	return nil
}

type departmentRepository struct {
	db sqlx.ExtContext
}

func (r *departmentRepository) List(ctx context.Context) ([]*model.Department, error) {
	query := `
		SELECT id, name, COALESCE(description, '') AS description
		FROM departments
		ORDER BY name
	`
	departments := []*model.Department{}
	if err := sqlx.SelectContext(ctx, r.db, &departments, query); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}
