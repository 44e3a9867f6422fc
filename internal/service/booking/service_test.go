package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-queue/internal/cache"
	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository/repotest"
	"github.com/jwalitptl/opd-queue/internal/service/availability"
	"github.com/jwalitptl/opd-queue/internal/service/notification"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
)

var day = model.NewDate(2024, time.January, 10)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, phone, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, phone+": "+message)
	return nil
}

type fixture struct {
	store   *repotest.Store
	svc     *Service
	sms     *recordingSender
	metrics *metrics.Metrics
	doctor  model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.New()
	m := metrics.NewNop()
	log := logger.Nop()
	sender := &recordingSender{}
	svc := NewService(store, availability.NewChecker(store), notification.NewEmitter(m, log), sender, m, log)
	return &fixture{
		store:   store,
		svc:     svc,
		sms:     sender,
		metrics: m,
		doctor:  store.AddDoctor(model.Doctor{FullName: "Asha Rao"}),
	}
}

func (f *fixture) patient(name string) model.Patient {
	return f.store.AddPatient(model.Patient{FullName: name, Age: 40, Gender: "female", Phone: "+91 98765 43210"})
}

func (f *fixture) book(t *testing.T, patient model.Patient, h, m int, emergency bool) (*model.Appointment, error) {
	t.Helper()
	return f.svc.Book(context.Background(), BookRequest{
		PatientID: patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      day,
		Time:      model.NewClock(h, m),
		Emergency: emergency,
	})
}

func TestBookIssuesSequentialTokens(t *testing.T) {
	f := newFixture(t)

	for i, slot := range []int{30, 40, 50} {
		appt, err := f.book(t, f.patient("P"), 9, slot, false)
		require.NoError(t, err)
		assert.Equal(t, i+1, appt.TokenNumber)
		assert.Equal(t, model.AppointmentStatusPending, appt.Status)
		assert.Equal(t, model.AppointmentTypeNormal, appt.Type)
	}

	q, ok := f.store.Queue(f.doctor.ID, day)
	require.True(t, ok)
	assert.Zero(t, q.CurrentToken, "booking must not move the serving pointer")
}

func TestTokensAreIndependentPerDoctorAndDay(t *testing.T) {
	f := newFixture(t)
	other := f.store.AddDoctor(model.Doctor{FullName: "Vikram Shah"})
	p := f.patient("P")

	a1, err := f.book(t, p, 10, 0, false)
	require.NoError(t, err)
	a2, err := f.svc.Book(context.Background(), BookRequest{PatientID: p.ID, DoctorID: other.ID, Date: day, Time: model.NewClock(10, 0)})
	require.NoError(t, err)
	a3, err := f.svc.Book(context.Background(), BookRequest{PatientID: p.ID, DoctorID: f.doctor.ID, Date: day.AddDays(1), Time: model.NewClock(10, 0)})
	require.NoError(t, err)

	assert.Equal(t, 1, a1.TokenNumber)
	assert.Equal(t, 1, a2.TokenNumber)
	assert.Equal(t, 1, a3.TokenNumber)
}

func TestConcurrentBookingsNeverShareATokenNumber(t *testing.T) {
	f := newFixture(t)
	const n = 40

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := f.patient("P")
			_, err := f.svc.Book(context.Background(), BookRequest{
				PatientID: p.ID,
				DoctorID:  f.doctor.ID,
				Date:      day,
				Time:      model.NewClock(9, 0) + model.Clock(i*60),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	appts := f.store.AllAppointments()
	require.Len(t, appts, n)
	for i, a := range appts {
		assert.Equal(t, i+1, a.TokenNumber)
	}
}

func TestConcurrentBookingsOfOneSlotAdmitOnlyOne(t *testing.T) {
	f := newFixture(t)
	const n = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	booked, denied := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(t, f.patient("P"), 11, 0, false)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				booked++
			} else if appErr, ok := apperrors.As(err); ok && appErr.Message == availability.MsgSlotBooked {
				denied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, booked)
	assert.Equal(t, n-1, denied)
}

func TestDoubleBookingIsDenied(t *testing.T) {
	f := newFixture(t)

	_, err := f.book(t, f.patient("A"), 9, 30, false)
	require.NoError(t, err)

	_, err = f.book(t, f.patient("B"), 9, 30, true)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "Slot already booked", appErr.Message)
	assert.Len(t, f.store.AllAppointments(), 1)
}

func TestEmergencyBypassesScheduleButNotLeave(t *testing.T) {
	f := newFixture(t)
	p := f.patient("P")

	_, err := f.book(t, p, 19, 0, false)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	appt, err := f.book(t, p, 19, 0, true)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentTypeEmergency, appt.Type)
	assert.Equal(t, 1, appt.TokenNumber)

	require.NoError(t, f.store.Leaves().Create(context.Background(), &model.DoctorLeave{DoctorID: f.doctor.ID, LeaveDate: day.AddDays(1)}))
	_, err = f.svc.Book(context.Background(), BookRequest{
		PatientID: p.ID, DoctorID: f.doctor.ID, Date: day.AddDays(1), Time: model.NewClock(10, 0), Emergency: true,
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Doctor is on leave on this date", appErr.Message)
}

func TestUnknownPatientOrDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), BookRequest{PatientID: uuid.New(), DoctorID: f.doctor.ID, Date: day, Time: model.NewClock(10, 0)})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	p := f.patient("P")
	_, err = f.svc.Book(context.Background(), BookRequest{PatientID: p.ID, DoctorID: uuid.New(), Date: day, Time: model.NewClock(10, 0)})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	assert.Empty(t, f.store.AllAppointments())
}

func TestUniqueViolationIsRetriedOnce(t *testing.T) {
	f := newFixture(t)
	f.store.DuplicateNextAppointmentInserts(1)

	appt, err := f.book(t, f.patient("P"), 10, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, appt.TokenNumber)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TokenRetries))
}

func TestSecondUniqueViolationSurfaces(t *testing.T) {
	f := newFixture(t)
	f.store.DuplicateNextAppointmentInserts(2)

	_, err := f.book(t, f.patient("P"), 10, 0, false)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	assert.Empty(t, f.store.AllAppointments())
	assert.Empty(t, f.sms.sent)
}

func TestConfirmationIsSentAfterCommit(t *testing.T) {
	f := newFixture(t)
	p := f.patient("P")

	appt, err := f.book(t, p, 9, 30, false)
	require.NoError(t, err)

	require.Len(t, f.sms.sent, 1)
	assert.Contains(t, f.sms.sent[0], "Thank you for booking appointment on 2024-01-10 at 09:30")

	notes := f.store.AllNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationTypeBookingConfirmed, notes[0].Type)
	assert.Equal(t, p.ID, notes[0].PatientID)
	require.NotNil(t, notes[0].AppointmentID)
	assert.Equal(t, appt.ID, *notes[0].AppointmentID)
}

func TestSideEffectFailuresDoNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.sms.err = errors.New("gateway down")
	f.store.FailNotifications(true)

	appt, err := f.book(t, f.patient("P"), 9, 30, false)
	require.NoError(t, err)
	assert.Equal(t, 1, appt.TokenNumber)

	stored, ok := f.store.Appointment(appt.ID)
	require.True(t, ok)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SMS.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("BOOKING_CONFIRMED", "error")))
}

func TestCancelledTokensAreNotReused(t *testing.T) {
	f := newFixture(t)

	first, err := f.book(t, f.patient("A"), 9, 30, false)
	require.NoError(t, err)
	require.NoError(t, f.store.Appointments().UpdateStatus(context.Background(), first.ID, model.AppointmentStatusCancelled))

	again, err := f.book(t, f.patient("B"), 9, 30, false)
	require.NoError(t, err)
	assert.Equal(t, 2, again.TokenNumber)
}

func TestBookingInvalidatesQueueStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	statusCache := cache.NewLocalCache(time.Minute)
	f.svc.WithStatusCache(statusCache)

	gen, err := statusCache.Generation(ctx, f.doctor.ID, day)
	require.NoError(t, err)
	require.NoError(t, statusCache.Set(ctx, &model.QueueStatus{DoctorID: f.doctor.ID, Date: day}, gen))

	_, err = f.book(t, f.patient("A"), 10, 0, false)
	require.NoError(t, err)

	_, err = statusCache.Get(ctx, f.doctor.ID, day)
	assert.ErrorIs(t, err, cache.ErrMiss)
}
