// Package booking turns a slot request into an appointment holding the next
// token of the doctor's day.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/cache"
	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/internal/service/availability"
	"github.com/jwalitptl/opd-queue/internal/service/notification"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
	"github.com/jwalitptl/opd-queue/pkg/sms"
)

const msgTokenContention = "Could not allocate a token, please try again"

type BookRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      model.Date
	Time      model.Clock
	Emergency bool
}

type Service struct {
	store   repository.Store
	checker *availability.Checker
	emitter *notification.Emitter
	sms     sms.Sender
	status  cache.QueueStatusCache
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewService(store repository.Store, checker *availability.Checker, emitter *notification.Emitter, sender sms.Sender, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		checker: checker,
		emitter: emitter,
		sms:     sender,
		metrics: m,
		log:     log,
	}
}

// WithStatusCache makes every committed booking invalidate the cached queue
// status of its day, so the waiting count moves with it.
func (s *Service) WithStatusCache(c cache.QueueStatusCache) *Service {
	s.status = c
	return s
}

// Book checks the slot and issues the next token in one transaction. A
// uniqueness violation means another writer got past the lock (or the slot
// index caught a race); the whole transaction is retried once with a fresh
// read. Confirmation SMS and notification are sent after commit and never
// fail the booking.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	start := time.Now()
	appt, err := s.book(ctx, req)
	s.metrics.BookingLatency.Observe(time.Since(start).Seconds())
	s.metrics.Bookings.WithLabelValues(bookingOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	patient, err := s.store.Patients().Get(ctx, req.PatientID)
	if err != nil {
		return nil, service.Lookup(err, "patient")
	}
	if _, err := s.store.Doctors().Get(ctx, req.DoctorID); err != nil {
		return nil, service.Lookup(err, "doctor")
	}

	appt, err := s.allocate(ctx, req)
	if errors.Is(err, repository.ErrDuplicate) {
		s.metrics.TokenRetries.Inc()
		s.log.Warn("token allocation collided, retrying",
			"doctor_id", req.DoctorID.String(),
			"date", req.Date.String(),
		)
		appt, err = s.allocate(ctx, req)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.Conflict(msgTokenContention, err)
	}
	if err != nil {
		return nil, service.Internal(err, "book appointment")
	}

	s.metrics.TokensIssued.Inc()
	s.invalidate(ctx, appt)
	s.log.Info("appointment booked",
		"appointment_id", appt.ID.String(),
		"doctor_id", appt.DoctorID.String(),
		"date", appt.Date.String(),
		"token", appt.TokenNumber,
	)

	s.confirm(ctx, patient, appt)
	return appt, nil
}

func (s *Service) allocate(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := LockDay(ctx, tx, req.DoctorID, req.Date); err != nil {
			return err
		}

		at := req.Time
		if err := s.checker.Check(ctx, tx, availability.Request{
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			Time:      &at,
			Emergency: req.Emergency,
		}); err != nil {
			return err
		}

		token, err := NextToken(ctx, tx, req.DoctorID, req.Date)
		if err != nil {
			return err
		}

		appt = &model.Appointment{
			ID:          uuid.New(),
			PatientID:   req.PatientID,
			DoctorID:    req.DoctorID,
			Date:        req.Date,
			Time:        req.Time,
			Status:      model.AppointmentStatusPending,
			Type:        model.AppointmentTypeFor(req.Emergency),
			TokenNumber: token,
		}
		return tx.Appointments().Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ConfirmationMessage is the text sent to the patient after booking.
func ConfirmationMessage(date model.Date, at model.Clock) string {
	return fmt.Sprintf("Thank you for booking appointment on %s at %s for your health issue. "+
		"Please arrive at the hospital at least 30 minutes before the appointment time.", date, at)
}

func (s *Service) confirm(ctx context.Context, patient *model.Patient, appt *model.Appointment) {
	msg := ConfirmationMessage(appt.Date, appt.Time)

	err := s.sms.Send(ctx, patient.Phone, msg)
	s.metrics.SMS.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.log.Error(err, "failed to send booking sms", "appointment_id", appt.ID.String())
	}

	appointmentID := appt.ID
	s.emitter.Emit(ctx, s.store, &model.Notification{
		PatientID:     patient.ID,
		UserID:        patient.UserID,
		Message:       msg,
		Type:          model.NotificationTypeBookingConfirmed,
		AppointmentID: &appointmentID,
	})
}

func (s *Service) invalidate(ctx context.Context, appt *model.Appointment) {
	if s.status == nil {
		return
	}
	if err := s.status.Invalidate(ctx, appt.DoctorID, appt.Date); err != nil {
		s.log.Warn("failed to invalidate queue status", "doctor_id", appt.DoctorID.String(), "error", err.Error())
	}
}

func bookingOutcome(err error) string {
	if err == nil {
		return "booked"
	}
	if appErr, ok := apperrors.As(err); ok {
		switch appErr.Code {
		case apperrors.ErrBadRequest, apperrors.ErrConflict, apperrors.ErrNotFound:
			return "denied"
		}
	}
	return "error"
}
