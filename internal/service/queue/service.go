// Package queue moves a doctor's day forward: accepting, calling,
// completing, rescheduling and cancelling appointments, and pausing the
// whole queue.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/cache"
	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/internal/service/availability"
	"github.com/jwalitptl/opd-queue/internal/service/booking"
	"github.com/jwalitptl/opd-queue/internal/service/notification"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
)

const DefaultPauseReason = "Emergency break"

// ErrQueueEmpty is the expected outcome of calling next on a drained queue.
var ErrQueueEmpty = &apperrors.AppError{
	Code:    apperrors.ErrNotFound,
	Message: "No more pending patients in queue",
}

type Service struct {
	store    repository.Store
	checker  *availability.Checker
	emitter  *notification.Emitter
	cache    cache.QueueStatusCache
	calendar service.Calendar
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewService(
	store repository.Store,
	checker *availability.Checker,
	emitter *notification.Emitter,
	statusCache cache.QueueStatusCache,
	calendar service.Calendar,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		store:    store,
		checker:  checker,
		emitter:  emitter,
		cache:    statusCache,
		calendar: calendar,
		metrics:  m,
		log:      log,
	}
}

// Accept moves a pending or rescheduled appointment to accepted.
func (s *Service) Accept(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			return service.Lookup(err, "appointment")
		}
		if !appt.Status.In(model.AppointmentStatusPending, model.AppointmentStatusRescheduled) {
			return apperrors.Conflict(fmt.Sprintf("Cannot accept an appointment that is %s", appt.Status), nil)
		}
		appt.Status = model.AppointmentStatusAccepted
		return tx.Appointments().UpdateStatus(ctx, id, appt.Status)
	})
	s.record("accept", err)
	if err != nil {
		return nil, service.Internal(err, "accept appointment")
	}
	s.invalidate(ctx, appt.DoctorID, appt.Date)
	return appt, nil
}

// CallNext calls the lowest pending token of the doctor's day. The serving
// pointer is set to that token rather than incremented, so cancelled or
// skipped tokens leave no trace in it.
func (s *Service) CallNext(ctx context.Context, doctorID uuid.UUID) (*model.CallNextResult, error) {
	today := s.calendar.Today()

	var result *model.CallNextResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		doctor, err := tx.Doctors().Get(ctx, doctorID)
		if err != nil {
			return service.Lookup(err, "doctor")
		}
		if _, err := booking.LockDay(ctx, tx, doctorID, today); err != nil {
			return err
		}

		next, err := tx.Appointments().NextPending(ctx, doctorID, today)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQueueEmpty
		}
		if err != nil {
			return err
		}

		if err := tx.Appointments().UpdateStatus(ctx, next.ID, model.AppointmentStatusCalled); err != nil {
			return err
		}
		if err := tx.Queues().SetCurrentToken(ctx, doctorID, today, next.TokenNumber); err != nil {
			return err
		}

		appointmentID := next.ID
		s.emitter.Emit(ctx, tx, &model.Notification{
			PatientID:     next.PatientID,
			UserID:        s.userOf(ctx, tx, next.PatientID),
			Message:       CallNextMessage(doctor.FullName, next.TokenNumber),
			Type:          model.NotificationTypeCallNext,
			AppointmentID: &appointmentID,
		})

		result = &model.CallNextResult{
			CurrentToken:  next.TokenNumber,
			AppointmentID: next.ID,
			PatientID:     next.PatientID,
		}
		return nil
	})
	s.record("call_next", err)
	if err != nil {
		return nil, service.Internal(err, "call next patient")
	}

	s.metrics.CurrentToken.WithLabelValues(doctorID.String()).Set(float64(result.CurrentToken))
	s.invalidate(ctx, doctorID, today)
	s.log.Info("called next token",
		"doctor_id", doctorID.String(),
		"token", result.CurrentToken,
	)
	return result, nil
}

func CallNextMessage(doctorName string, token int) string {
	return fmt.Sprintf("Please proceed to the cabin of Dr. %s. Your token number %d is called.", doctorName, token)
}

// Complete overwrites the status with completed whatever it was before.
// Doctors close consultations from any state at the desk, so no transition
// is refused.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	var appt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			return service.Lookup(err, "appointment")
		}
		return tx.Appointments().UpdateStatus(ctx, id, model.AppointmentStatusCompleted)
	})
	s.record("complete", err)
	if err != nil {
		return service.Internal(err, "complete appointment")
	}
	s.invalidate(ctx, appt.DoctorID, appt.Date)
	return nil
}

type RescheduleRequest struct {
	AppointmentID uuid.UUID
	Date          model.Date
	Time          model.Clock
	Note          string
}

// Reschedule moves an appointment to a new slot after checking it like a
// new booking, with the appointment's own type deciding the schedule
// bypass. Moving to another day takes a fresh token on that day; the old
// day's token is left as a gap.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	var previous model.Date
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().GetForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return service.Lookup(err, "appointment")
		}
		if appt.Status.In(model.AppointmentStatusCompleted, model.AppointmentStatusCancelled) {
			return apperrors.Conflict(fmt.Sprintf("Cannot reschedule an appointment that is %s", appt.Status), nil)
		}

		if _, err := booking.LockDay(ctx, tx, appt.DoctorID, req.Date); err != nil {
			return err
		}

		at := req.Time
		if err := s.checker.Check(ctx, tx, availability.Request{
			DoctorID:  appt.DoctorID,
			Date:      req.Date,
			Time:      &at,
			Emergency: appt.IsEmergency(),
			ExcludeID: &appt.ID,
		}); err != nil {
			return err
		}

		if req.Date != appt.Date {
			token, err := booking.NextToken(ctx, tx, appt.DoctorID, req.Date)
			if err != nil {
				return err
			}
			appt.TokenNumber = token
		}

		note := req.Note
		previous = appt.Date
		appt.Date = req.Date
		appt.Time = req.Time
		appt.Status = model.AppointmentStatusRescheduled
		appt.RescheduleNote = &note
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return err
		}

		appointmentID := appt.ID
		s.emitter.Emit(ctx, tx, &model.Notification{
			PatientID:     appt.PatientID,
			UserID:        s.userOf(ctx, tx, appt.PatientID),
			Message:       RescheduleMessage(req.Date, req.Time, req.Note),
			Type:          model.NotificationTypeAppointmentReminder,
			AppointmentID: &appointmentID,
		})
		return nil
	})
	s.record("reschedule", err)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.Conflict(availability.MsgSlotBooked, err)
	}
	if err != nil {
		return nil, service.Internal(err, "reschedule appointment")
	}
	s.invalidate(ctx, appt.DoctorID, previous)
	if previous != appt.Date {
		s.invalidate(ctx, appt.DoctorID, appt.Date)
	}
	return appt, nil
}

func RescheduleMessage(date model.Date, at model.Clock, note string) string {
	return fmt.Sprintf("Your appointment has been rescheduled to %s at %s. Note: %s", date, at, note)
}

// Cancel frees the slot. Tokens are never renumbered.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	var appt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			return service.Lookup(err, "appointment")
		}
		if !appt.Status.In(model.AppointmentStatusPending, model.AppointmentStatusAccepted, model.AppointmentStatusRescheduled) {
			return apperrors.Conflict(fmt.Sprintf("Cannot cancel an appointment that is %s", appt.Status), nil)
		}
		return tx.Appointments().UpdateStatus(ctx, id, model.AppointmentStatusCancelled)
	})
	s.record("cancel", err)
	if err != nil {
		return service.Internal(err, "cancel appointment")
	}
	s.invalidate(ctx, appt.DoctorID, appt.Date)
	return nil
}

// Pause marks the doctor paused and tells everyone still waiting today,
// including the patient already called.
func (s *Service) Pause(ctx context.Context, doctorID uuid.UUID, reason string) error {
	if reason == "" {
		reason = DefaultPauseReason
	}
	err := s.broadcast(ctx, doctorID, true, &reason,
		fmt.Sprintf("Consultations are temporarily paused by the doctor. Reason: %s. Please wait.", reason),
		model.NotificationTypeQueuePaused,
		model.AppointmentStatusPending, model.AppointmentStatusAccepted, model.AppointmentStatusCalled,
	)
	s.record("pause", err)
	return err
}

// Resume clears the pause and tells patients who have not been called yet.
func (s *Service) Resume(ctx context.Context, doctorID uuid.UUID) error {
	err := s.broadcast(ctx, doctorID, false, nil,
		"The doctor has resumed consultations. Thank you for your patience.",
		model.NotificationTypeQueueResumed,
		model.AppointmentStatusPending, model.AppointmentStatusAccepted,
	)
	s.record("resume", err)
	return err
}

func (s *Service) broadcast(
	ctx context.Context,
	doctorID uuid.UUID,
	paused bool,
	reason *string,
	message string,
	typ model.NotificationType,
	statuses ...model.AppointmentStatus,
) error {
	today := s.calendar.Today()
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Doctors().SetPause(ctx, doctorID, paused, reason); err != nil {
			return service.Lookup(err, "doctor")
		}

		appts, err := tx.Appointments().ListForDoctor(ctx, doctorID, today, statuses...)
		if err != nil {
			return err
		}
		for _, appt := range appts {
			appointmentID := appt.ID
			s.emitter.Emit(ctx, tx, &model.Notification{
				PatientID:     appt.PatientID,
				UserID:        s.userOf(ctx, tx, appt.PatientID),
				Message:       message,
				Type:          typ,
				AppointmentID: &appointmentID,
			})
		}
		return nil
	})
	if err != nil {
		return service.Internal(err, "update pause state")
	}

	s.invalidate(ctx, doctorID, today)
	s.log.Info("queue pause state changed",
		"doctor_id", doctorID.String(),
		"paused", paused,
	)
	return nil
}

// Status is read-only and goes through the cache. A missing queue row means
// nobody has been called yet. The snapshot is cached under the generation
// read before the database, so a writer that commits in between makes it
// unservable.
func (s *Service) Status(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.QueueStatus, error) {
	if status, ok := s.cachedStatus(ctx, doctorID, date); ok {
		return status, nil
	}

	generation, genErr := s.cache.Generation(ctx, doctorID, date)
	if genErr != nil {
		s.log.Warn("queue status cache unavailable", "error", genErr.Error())
	}

	doctor, err := s.store.Doctors().Get(ctx, doctorID)
	if err != nil {
		return nil, service.Lookup(err, "doctor")
	}

	status := &model.QueueStatus{
		DoctorID:    doctorID,
		Date:        date,
		IsPaused:    doctor.IsPaused,
		PauseReason: doctor.PauseReason,
	}

	queue, err := s.store.Queues().Get(ctx, doctorID, date)
	switch {
	case err == nil:
		status.CurrentToken = queue.CurrentToken
	case !errors.Is(err, repository.ErrNotFound):
		return nil, service.Internal(err, "read queue status")
	}

	status.Waiting, err = s.store.Appointments().CountByStatus(ctx, doctorID, date, model.AppointmentStatusPending)
	if err != nil {
		return nil, service.Internal(err, "count waiting patients")
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, status, generation); err != nil {
			s.log.Warn("failed to cache queue status", "doctor_id", doctorID.String(), "error", err.Error())
		}
	}
	return status, nil
}

func (s *Service) cachedStatus(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.QueueStatus, bool) {
	status, err := s.cache.Get(ctx, doctorID, date)
	switch {
	case err == nil:
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return status, true
	case errors.Is(err, cache.ErrMiss):
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		s.metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("queue status cache unavailable", "error", err.Error())
	}
	return nil, false
}

// DailyList is the doctor's day in token order.
func (s *Service) DailyList(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.AppointmentDetail, error) {
	if _, err := s.store.Doctors().Get(ctx, doctorID); err != nil {
		return nil, service.Lookup(err, "doctor")
	}
	appts, err := s.store.Appointments().ListForDoctor(ctx, doctorID, date)
	if err != nil {
		return nil, service.Internal(err, "list appointments")
	}
	return appts, nil
}

func (s *Service) userOf(ctx context.Context, tx repository.Store, patientID uuid.UUID) *uuid.UUID {
	patient, err := tx.Patients().Get(ctx, patientID)
	if err != nil {
		return nil
	}
	return patient.UserID
}

func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID, date model.Date) {
	if err := s.cache.Invalidate(ctx, doctorID, date); err != nil {
		s.log.Warn("failed to invalidate queue status", "doctor_id", doctorID.String(), "error", err.Error())
	}
}

func (s *Service) record(action string, err error) {
	s.metrics.QueueActions.WithLabelValues(action, metrics.Outcome(err)).Inc()
}
