// Package access decides whether a caller may act on a doctor's queue or on
// a patient's appointments. A role alone is not enough: the doctor or
// patient record must be linked to the caller's user id.
package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/pkg/auth"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

type Checker struct {
	store repository.Store
}

func NewChecker(store repository.Store) *Checker {
	return &Checker{store: store}
}

// Doctor allows the user linked to the doctor record.
func (a *Checker) Doctor(ctx context.Context, caller auth.Caller, doctorID uuid.UUID) error {
	if caller.IsAdmin() {
		return nil
	}
	doctor, err := a.store.Doctors().Get(ctx, doctorID)
	if err != nil {
		return service.Lookup(err, "doctor")
	}
	return owned(caller, doctor.UserID, "doctor", doctorID)
}

// Patient allows the user linked to the patient record.
func (a *Checker) Patient(ctx context.Context, caller auth.Caller, patientID uuid.UUID) error {
	if caller.IsAdmin() {
		return nil
	}
	patient, err := a.store.Patients().Get(ctx, patientID)
	if err != nil {
		return service.Lookup(err, "patient")
	}
	return owned(caller, patient.UserID, "patient", patientID)
}

// AppointmentDoctor allows the doctor the appointment is booked with.
func (a *Checker) AppointmentDoctor(ctx context.Context, caller auth.Caller, appointmentID uuid.UUID) error {
	if caller.IsAdmin() {
		return nil
	}
	appt, err := a.store.Appointments().Get(ctx, appointmentID)
	if err != nil {
		return service.Lookup(err, "appointment")
	}
	return a.Doctor(ctx, caller, appt.DoctorID)
}

// AppointmentPatient allows the patient who holds the appointment.
func (a *Checker) AppointmentPatient(ctx context.Context, caller auth.Caller, appointmentID uuid.UUID) error {
	if caller.IsAdmin() {
		return nil
	}
	appt, err := a.store.Appointments().Get(ctx, appointmentID)
	if err != nil {
		return service.Lookup(err, "appointment")
	}
	return a.Patient(ctx, caller, appt.PatientID)
}

func owned(caller auth.Caller, owner *uuid.UUID, resource string, id uuid.UUID) error {
	if caller.Owns(owner) {
		return nil
	}
	return apperrors.Forbidden(fmt.Errorf("user %s is not linked to %s %s", caller.UserID, resource, id))
}
