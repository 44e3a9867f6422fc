package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository/repotest"
	"github.com/jwalitptl/opd-queue/internal/service"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
)

var (
	day = model.NewDate(2024, time.January, 10)
	now = time.Date(2024, time.January, 10, 9, 25, 0, 0, time.UTC)
)

type fixture struct {
	store   *repotest.Store
	svc     *Service
	doctor  model.Doctor
	patient model.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.New()
	m := metrics.NewNop()
	log := logger.Nop()
	calendar := service.Calendar{Location: time.UTC, Now: func() time.Time { return now }}
	return &fixture{
		store:   store,
		svc:     NewService(store, NewEmitter(m, log), calendar, 10*time.Minute, m, log),
		doctor:  store.AddDoctor(model.Doctor{FullName: "Asha Rao"}),
		patient: store.AddPatient(model.Patient{FullName: "A", Phone: "9876543210"}),
	}
}

func (f *fixture) appointment(date model.Date, h, m int, status model.AppointmentStatus, token int) model.Appointment {
	return f.store.PutAppointment(model.Appointment{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		Date:        date,
		Time:        model.NewClock(h, m),
		Status:      status,
		Type:        model.AppointmentTypeNormal,
		TokenNumber: token,
	})
}

func reminders(all []*model.Notification) []*model.Notification {
	var out []*model.Notification
	for _, n := range all {
		if n.Type == model.NotificationTypeAppointmentReminder {
			out = append(out, n)
		}
	}
	return out
}

func TestFeedCreatesReminderOnce(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(day, 9, 30, model.AppointmentStatusPending, 1)

	first, err := f.svc.Feed(context.Background(), f.patient.ID)
	require.NoError(t, err)
	second, err := f.svc.Feed(context.Background(), f.patient.ID)
	require.NoError(t, err)

	require.Len(t, reminders(first), 1)
	require.Len(t, reminders(second), 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	require.NotNil(t, first[0].AppointmentID)
	assert.Equal(t, appt.ID, *first[0].AppointmentID)
	assert.Equal(t, "Reminder: your appointment with Dr. Asha Rao is at 09:30 today. Your token number is 1.", first[0].Message)
}

func TestConcurrentFeedsCreateOneReminder(t *testing.T) {
	f := newFixture(t)
	f.appointment(day, 9, 35, model.AppointmentStatusPending, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Feed(context.Background(), f.patient.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int
	for _, n := range f.store.AllNotifications() {
		if n.Type == model.NotificationTypeAppointmentReminder {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFeedWindowIsClosedAndTodayOnly(t *testing.T) {
	f := newFixture(t)
	f.appointment(day, 9, 25, model.AppointmentStatusPending, 1)            // now
	f.appointment(day, 9, 35, model.AppointmentStatusPending, 2)            // now + 10m
	f.appointment(day, 9, 36, model.AppointmentStatusPending, 3)            // too late
	f.appointment(day, 9, 20, model.AppointmentStatusPending, 4)            // already past
	f.appointment(day, 9, 30, model.AppointmentStatusAccepted, 5)           // not pending
	f.appointment(day.AddDays(1), 9, 30, model.AppointmentStatusPending, 1) // tomorrow

	feed, err := f.svc.Feed(context.Background(), f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, reminders(feed), 2)
}

func TestFeedIsNewestFirstAndUnreadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

	older := &model.Notification{PatientID: f.patient.ID, Message: "older", Type: model.NotificationTypeBookingConfirmed, CreatedAt: base}
	newer := &model.Notification{PatientID: f.patient.ID, Message: "newer", Type: model.NotificationTypeCallNext, CreatedAt: base.Add(time.Minute)}
	read := &model.Notification{PatientID: f.patient.ID, Message: "read", Type: model.NotificationTypeCallNext, CreatedAt: base.Add(2 * time.Minute)}
	for _, n := range []*model.Notification{older, newer, read} {
		require.NoError(t, f.store.Notifications().Create(ctx, n))
	}
	require.NoError(t, f.svc.MarkRead(ctx, read.ID))

	feed, err := f.svc.Feed(ctx, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "newer", feed[0].Message)
	assert.Equal(t, "older", feed[1].Message)
}

func TestFeedSurvivesReminderFailure(t *testing.T) {
	f := newFixture(t)
	f.appointment(day, 9, 30, model.AppointmentStatusPending, 1)
	f.store.FailNotifications(true)

	feed, err := f.svc.Feed(context.Background(), f.patient.ID)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestFeedUnknownPatient(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Feed(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, apperrors.IsCode(f.svc.MarkRead(ctx, uuid.New()), apperrors.ErrNotFound))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Notifications().Create(ctx, &model.Notification{
			PatientID: f.patient.ID, Message: "m", Type: model.NotificationTypeCallNext,
		}))
	}
	n, err := f.svc.MarkAllRead(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	feed, err := f.svc.Feed(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Empty(t, feed)
}
