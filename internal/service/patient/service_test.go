package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository/repotest"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

func TestRegisterAndGet(t *testing.T) {
	store := repotest.New()
	svc := NewService(store)
	ctx := context.Background()
	userID := uuid.New()

	p, err := svc.Register(ctx, &model.CreatePatientRequest{
		UserID: &userID, FullName: "Meera Iyer", Age: 34, Gender: "female", Phone: "9876543210",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meera Iyer", got.FullName)

	_, err = svc.Register(ctx, &model.CreatePatientRequest{UserID: &userID, FullName: "Dup", Gender: "female", Phone: "1234567"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestHistoryIsNewestFirst(t *testing.T) {
	store := repotest.New()
	svc := NewService(store)
	doctor := store.AddDoctor(model.Doctor{FullName: "Asha Rao"})
	p := store.AddPatient(model.Patient{FullName: "Meera Iyer"})

	day := model.NewDate(2024, time.January, 10)
	store.PutAppointment(model.Appointment{PatientID: p.ID, DoctorID: doctor.ID, Date: day, Time: model.NewClock(9, 0), TokenNumber: 1})
	store.PutAppointment(model.Appointment{PatientID: p.ID, DoctorID: doctor.ID, Date: day.AddDays(7), Time: model.NewClock(9, 0), TokenNumber: 1})

	history, err := svc.History(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, day.AddDays(7), history[0].Date)
	assert.Equal(t, "Asha Rao", history[0].DoctorName)
}
