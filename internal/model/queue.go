package model

import (
	"time"

	"github.com/google/uuid"
)

// DailyQueue holds the serving pointer for one doctor on one day.
type DailyQueue struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	QueueDate    Date      `db:"queue_date" json:"queue_date"`
	CurrentToken int       `db:"current_token" json:"current_token"`
	LastUpdated  time.Time `db:"last_updated" json:"last_updated"`
}

type QueueStatus struct {
	DoctorID     uuid.UUID `json:"doctor_id"`
	Date         Date      `json:"date"`
	CurrentToken int       `json:"current_token"`
	IsPaused     bool      `json:"is_paused"`
	PauseReason  *string   `json:"pause_reason,omitempty"`
	Waiting      int       `json:"waiting"`
}

type CallNextRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
}

type CallNextResult struct {
	CurrentToken  int       `json:"current_token"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
}

type PauseRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
	Reason   string    `json:"reason" binding:"max=255"`
}

type ResumeRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
}

type AvailabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}
