package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-queue/internal/model"
)

type notificationRepository struct {
	db sqlx.ExtContext
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, patient_id, user_id, message, type, is_read, appointment_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.PatientID,
		n.UserID,
		n.Message,
		n.Type,
		n.IsRead,
		n.AppointmentID,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", translate(err))
	}
	return nil
}

func (r *notificationRepository) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID, typ model.NotificationType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications WHERE appointment_id = $1 AND type = $2
		)
	`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, appointmentID, typ); err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}

func (r *notificationRepository) ListUnread(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error) {
	query := `
		SELECT id, patient_id, user_id, message, type, is_read, appointment_id, created_at
		FROM notifications
		WHERE patient_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC
	`
	notifications := []*model.Notification{}
	if err := sqlx.SelectContext(ctx, r.db, &notifications, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE patient_id = $1 AND is_read = FALSE`, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}
