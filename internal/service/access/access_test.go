package access

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository/repotest"
	"github.com/jwalitptl/opd-queue/pkg/auth"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

type fixture struct {
	checker     *Checker
	doctorUser  uuid.UUID
	patientUser uuid.UUID
	doctor      model.Doctor
	patient     model.Patient
	appointment model.Appointment
}

func newFixture() *fixture {
	store := repotest.New()
	f := &fixture{checker: NewChecker(store), doctorUser: uuid.New(), patientUser: uuid.New()}
	f.doctor = store.AddDoctor(model.Doctor{FullName: "Asha Rao", UserID: &f.doctorUser})
	f.patient = store.AddPatient(model.Patient{FullName: "Meera", UserID: &f.patientUser})
	f.appointment = model.Appointment{
		ID:          uuid.New(),
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		Date:        model.NewDate(2024, time.January, 10),
		Time:        model.NewClock(10, 0),
		Status:      model.AppointmentStatusPending,
		Type:        model.AppointmentTypeNormal,
		TokenNumber: 1,
	}
	store.PutAppointment(f.appointment)
	return f
}

func TestDoctorOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.NoError(t, f.checker.Doctor(ctx, auth.Caller{UserID: f.doctorUser, Role: auth.RoleDoctor}, f.doctor.ID))
	assert.NoError(t, f.checker.Doctor(ctx, auth.Caller{Role: auth.RoleAdmin}, f.doctor.ID))

	err := f.checker.Doctor(ctx, auth.Caller{UserID: uuid.New(), Role: auth.RoleDoctor}, f.doctor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	err = f.checker.Doctor(ctx, auth.Caller{UserID: f.doctorUser, Role: auth.RoleDoctor}, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestAppointmentOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doctor := auth.Caller{UserID: f.doctorUser, Role: auth.RoleDoctor}
	patient := auth.Caller{UserID: f.patientUser, Role: auth.RolePatient}
	stranger := auth.Caller{UserID: uuid.New(), Role: auth.RolePatient}

	assert.NoError(t, f.checker.AppointmentDoctor(ctx, doctor, f.appointment.ID))
	assert.NoError(t, f.checker.AppointmentPatient(ctx, patient, f.appointment.ID))

	assert.True(t, apperrors.IsCode(f.checker.AppointmentPatient(ctx, stranger, f.appointment.ID), apperrors.ErrForbidden))
	assert.True(t, apperrors.IsCode(f.checker.AppointmentDoctor(ctx, patient, f.appointment.ID), apperrors.ErrForbidden))
	assert.True(t, apperrors.IsCode(f.checker.AppointmentPatient(ctx, patient, uuid.New()), apperrors.ErrNotFound))
}

func TestPatientOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.NoError(t, f.checker.Patient(ctx, auth.Caller{UserID: f.patientUser, Role: auth.RolePatient}, f.patient.ID))
	err := f.checker.Patient(ctx, auth.Caller{UserID: uuid.New(), Role: auth.RolePatient}, f.patient.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}
