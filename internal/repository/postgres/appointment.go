package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/opd-queue/internal/model"
)

const appointmentColumns = `
	a.id, a.patient_id, a.doctor_id, a.appointment_date, a.appointment_time,
	a.status, a.type, a.token_number, a.reschedule_note,
	a.created_at, a.updated_at`

const appointmentDetailColumns = appointmentColumns + `,
	p.full_name AS patient_name, p.age AS patient_age, p.gender AS patient_gender,
	d.full_name AS doctor_name`

type appointmentRepository struct {
	db sqlx.ExtContext
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, appointment_time,
			status, type, token_number, reschedule_note,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Date,
		appointment.Time,
		appointment.Status,
		appointment.Type,
		appointment.TokenNumber,
		appointment.RescheduleNote,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", translate(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.get(ctx, id, "")
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *appointmentRepository) get(ctx context.Context, id uuid.UUID, lock string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.id = $1` + lock

	var appointment model.Appointment
	if err := sqlx.GetContext(ctx, r.db, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translate(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET appointment_date = $1, appointment_time = $2, status = $3,
			token_number = $4, reschedule_note = $5, updated_at = $6
		WHERE id = $7
	`
	appointment.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, query,
		appointment.Date,
		appointment.Time,
		appointment.Status,
		appointment.TokenNumber,
		appointment.RescheduleNote,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", translate(err))
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return nil
}

func (r *appointmentRepository) SlotTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, at model.Clock, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3
			  AND status <> 'cancelled'
			  AND ($4::uuid IS NULL OR id <> $4::uuid)
		)
	`
	var taken bool
	if err := sqlx.GetContext(ctx, r.db, &taken, query, doctorID, date, at, excludeID); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *appointmentRepository) MaxToken(ctx context.Context, doctorID uuid.UUID, date model.Date) (int, error) {
	query := `
		SELECT COALESCE(MAX(token_number), 0)
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
	`
	var maxToken int
	if err := sqlx.GetContext(ctx, r.db, &maxToken, query, doctorID, date); err != nil {
		return 0, fmt.Errorf("failed to read max token: %w", err)
	}
	return maxToken, nil
}

func (r *appointmentRepository) NextPending(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments a
		WHERE a.doctor_id = $1 AND a.appointment_date = $2 AND a.status = 'pending'
		ORDER BY a.token_number ASC
		LIMIT 1
		FOR UPDATE`

	var appointment model.Appointment
	if err := sqlx.GetContext(ctx, r.db, &appointment, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to select next pending appointment: %w", translate(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, date model.Date, statuses ...model.AppointmentStatus) ([]*model.AppointmentDetail, error) {
	query := `SELECT ` + appointmentDetailColumns + `
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.doctor_id = $1 AND a.appointment_date = $2`
	args := []interface{}{doctorID, date}
	if len(statuses) > 0 {
		query += ` AND a.status = ANY($3)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	query += ` ORDER BY a.token_number`

	appointments := []*model.AppointmentDetail{}
	if err := sqlx.SelectContext(ctx, r.db, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error) {
	query := `SELECT ` + appointmentDetailColumns + `
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date DESC, a.appointment_time DESC`

	appointments := []*model.AppointmentDetail{}
	if err := sqlx.SelectContext(ctx, r.db, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) DueForReminder(ctx context.Context, patientID uuid.UUID, date model.Date, from, to model.Clock) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments a
		WHERE a.patient_id = $1 AND a.appointment_date = $2 AND a.status = 'pending'
		  AND a.appointment_time BETWEEN $3 AND $4
		ORDER BY a.appointment_time
		FOR UPDATE`

	appointments := []*model.Appointment{}
	if err := sqlx.SelectContext(ctx, r.db, &appointments, query, patientID, date, from, to); err != nil {
		return nil, fmt.Errorf("failed to select appointments due for reminder: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountByStatus(ctx context.Context, doctorID uuid.UUID, date model.Date, status model.AppointmentStatus) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status = $3
	`
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, query, doctorID, date, status); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}

func statusStrings(statuses []model.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
