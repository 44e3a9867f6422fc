package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeCallNext            NotificationType = "CALL_NEXT"
	NotificationTypeAppointmentReminder NotificationType = "APPOINTMENT_REMINDER"
	NotificationTypeQueuePaused         NotificationType = "QUEUE_PAUSED"
	NotificationTypeQueueResumed        NotificationType = "QUEUE_RESUMED"
	NotificationTypeBookingConfirmed    NotificationType = "BOOKING_CONFIRMED"
)

type Notification struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	PatientID     uuid.UUID        `db:"patient_id" json:"patient_id"`
	UserID        *uuid.UUID       `db:"user_id" json:"user_id,omitempty"`
	Message       string           `db:"message" json:"message"`
	Type          NotificationType `db:"type" json:"type"`
	IsRead        bool             `db:"is_read" json:"is_read"`
	AppointmentID *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}
