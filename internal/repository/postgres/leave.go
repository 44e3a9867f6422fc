package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-queue/internal/model"
)

type leaveRepository struct {
	db sqlx.ExtContext
}

func (r *leaveRepository) Create(ctx context.Context, leave *model.DoctorLeave) error {
	query := `
		INSERT INTO doctor_leaves (id, doctor_id, leave_date)
		VALUES ($1, $2, $3)
	`
	if leave.ID == uuid.Nil {
		leave.ID = uuid.New()
	}

	if _, err := r.db.ExecContext(ctx, query, leave.ID, leave.DoctorID, leave.LeaveDate); err != nil {
		return fmt.Errorf("failed to create leave: %w", translate(err))
	}
	return nil
}

func (r *leaveRepository) Delete(ctx context.Context, doctorID uuid.UUID, date model.Date) error {
	query := `DELETE FROM doctor_leaves WHERE doctor_id = $1 AND leave_date = $2`

	res, err := r.db.ExecContext(ctx, query, doctorID, date)
	if err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	return nil
}

func (r *leaveRepository) Exists(ctx context.Context, doctorID uuid.UUID, date model.Date) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM doctor_leaves WHERE doctor_id = $1 AND leave_date = $2
		)
	`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, doctorID, date); err != nil {
		return false, fmt.Errorf("failed to check leave: %w", err)
	}
	return exists, nil
}

func (r *leaveRepository) ListFrom(ctx context.Context, doctorID uuid.UUID, from model.Date) ([]*model.DoctorLeave, error) {
	query := `
		SELECT id, doctor_id, leave_date
		FROM doctor_leaves
		WHERE doctor_id = $1 AND leave_date >= $2
		ORDER BY leave_date
	`
	leaves := []*model.DoctorLeave{}
	if err := sqlx.SelectContext(ctx, r.db, &leaves, query, doctorID, from); err != nil {
		return nil, fmt.Errorf("failed to list leaves: %w", err)
	}
	return leaves, nil
}
