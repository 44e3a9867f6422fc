package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-queue/internal/model"
)

type queueRepository struct {
	db sqlx.ExtContext
}

func (r *queueRepository) Ensure(ctx context.Context, doctorID uuid.UUID, date model.Date) (bool, error) {
	query := `
		INSERT INTO daily_queues (id, doctor_id, queue_date, current_token, last_updated)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (doctor_id, queue_date) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, uuid.New(), doctorID, date, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to ensure daily queue: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to ensure daily queue: %w", err)
	}
	return rows == 1, nil
}

func (r *queueRepository) Lock(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error) {
	return r.get(ctx, doctorID, date, " FOR UPDATE")
}

func (r *queueRepository) Get(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error) {
	return r.get(ctx, doctorID, date, "")
}

func (r *queueRepository) get(ctx context.Context, doctorID uuid.UUID, date model.Date, lock string) (*model.DailyQueue, error) {
	query := `
		SELECT id, doctor_id, queue_date, current_token, last_updated
		FROM daily_queues
		WHERE doctor_id = $1 AND queue_date = $2` + lock

	var queue model.DailyQueue
	if err := sqlx.GetContext(ctx, r.db, &queue, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to get daily queue: %w", translate(err))
	}
	return &queue, nil
}

func (r *queueRepository) SetCurrentToken(ctx context.Context, doctorID uuid.UUID, date model.Date, token int) error {
	query := `
		UPDATE daily_queues
		SET current_token = $1, last_updated = $2
		WHERE doctor_id = $3 AND queue_date = $4
	`
	res, err := r.db.ExecContext(ctx, query, token, time.Now().UTC(), doctorID, date)
	if err != nil {
		return fmt.Errorf("failed to set current token: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to set current token: %w", err)
	}
	return nil
}
