package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
)

const DefaultReminderWindow = 10 * time.Minute

type Service struct {
	store    repository.Store
	emitter  *Emitter
	calendar service.Calendar
	window   time.Duration
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewService(store repository.Store, emitter *Emitter, calendar service.Calendar, window time.Duration, m *metrics.Metrics, log *logger.Logger) *Service {
	if window <= 0 {
		window = DefaultReminderWindow
	}
	return &Service{
		store:    store,
		emitter:  emitter,
		calendar: calendar,
		window:   window,
		metrics:  m,
		log:      log,
	}
}

// Feed returns the patient's unread notifications, newest first. It is not a
// pure read: before listing, it creates an APPOINTMENT_REMINDER for every
// pending appointment today starting within the reminder window, unless that
// appointment already has one. The candidate appointments are row-locked so
// concurrent polls for the same patient cannot both insert.
func (s *Service) Feed(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error) {
	patient, err := s.store.Patients().Get(ctx, patientID)
	if err != nil {
		return nil, service.Lookup(err, "patient")
	}

	now := s.calendar.Current()
	from := model.ClockOf(now)
	to := model.ClockOf(now.Add(s.window))
	if to < from {
		// The window crosses midnight; only today's part is considered.
		to = model.NewClock(23, 59) + 59
	}

	var notifications []*model.Notification
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		due, err := tx.Appointments().DueForReminder(ctx, patientID, model.DateOf(now), from, to)
		if err != nil {
			return err
		}

		for _, appt := range due {
			exists, err := tx.Notifications().ExistsForAppointment(ctx, appt.ID, model.NotificationTypeAppointmentReminder)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if s.emitter.Emit(ctx, tx, s.reminder(ctx, tx, appt, patient.UserID)) {
				s.metrics.RemindersCreated.Inc()
			}
		}

		notifications, err = tx.Notifications().ListUnread(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, service.Internal(err, "load notifications")
	}
	return notifications, nil
}

func (s *Service) reminder(ctx context.Context, tx repository.Store, appt *model.Appointment, userID *uuid.UUID) *model.Notification {
	doctorName := "your doctor"
	if doctor, err := tx.Doctors().Get(ctx, appt.DoctorID); err == nil {
		doctorName = "Dr. " + doctor.FullName
	}
	appointmentID := appt.ID
	return &model.Notification{
		PatientID: appt.PatientID,
		UserID:    userID,
		Message: fmt.Sprintf("Reminder: your appointment with %s is at %s today. Your token number is %d.",
			doctorName, appt.Time, appt.TokenNumber),
		Type:          model.NotificationTypeAppointmentReminder,
		AppointmentID: &appointmentID,
	}
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Notifications().MarkRead(ctx, id); err != nil {
		return service.Lookup(err, "notification")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error) {
	if _, err := s.store.Patients().Get(ctx, patientID); err != nil {
		return 0, service.Lookup(err, "patient")
	}
	n, err := s.store.Notifications().MarkAllRead(ctx, patientID)
	if err != nil {
		return 0, service.Internal(err, "mark notifications read")
	}
	return n, nil
}
