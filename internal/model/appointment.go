package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusAccepted    AppointmentStatus = "accepted"
	AppointmentStatusCalled      AppointmentStatus = "called"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
)

// In reports whether s is one of the given statuses.
func (s AppointmentStatus) In(statuses ...AppointmentStatus) bool {
	for _, o := range statuses {
		if s == o {
			return true
		}
	}
	return false
}

type AppointmentType string

const (
	AppointmentTypeNormal    AppointmentType = "normal"
	AppointmentTypeEmergency AppointmentType = "emergency"
)

func AppointmentTypeFor(emergency bool) AppointmentType {
	if emergency {
		return AppointmentTypeEmergency
	}
	return AppointmentTypeNormal
}

type Appointment struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Date           Date              `db:"appointment_date" json:"appointment_date"`
	Time           Clock             `db:"appointment_time" json:"appointment_time"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Type           AppointmentType   `db:"type" json:"type"`
	TokenNumber    int               `db:"token_number" json:"token_number"`
	RescheduleNote *string           `db:"reschedule_note" json:"reschedule_note,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) IsEmergency() bool {
	return a.Type == AppointmentTypeEmergency
}

// AppointmentDetail is an appointment joined with the names a front desk or
// doctor needs to read a list.
type AppointmentDetail struct {
	Appointment
	PatientName   string `db:"patient_name" json:"patient_name"`
	PatientAge    int    `db:"patient_age" json:"patient_age"`
	PatientGender string `db:"patient_gender" json:"patient_gender"`
	DoctorName    string `db:"doctor_name" json:"doctor_name"`
}

type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID    uuid.UUID `json:"doctor_id" binding:"required"`
	Date        string    `json:"date" binding:"required,date"`
	Time        string    `json:"time" binding:"required,clock"`
	IsEmergency bool      `json:"is_emergency"`
}

type RescheduleRequest struct {
	NewDate string `json:"new_date" binding:"required,date"`
	NewTime string `json:"new_time" binding:"required,clock"`
	Note    string `json:"note" binding:"max=500"`
}

type BookingResult struct {
	Token         int       `json:"token"`
	AppointmentID uuid.UUID `json:"appointment_id"`
}
