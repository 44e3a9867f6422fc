// Package doctor manages the directory, schedules and leave days the
// availability checker reads.
package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
	"github.com/jwalitptl/opd-queue/pkg/logger"
)

type Service struct {
	store    repository.Store
	calendar service.Calendar
	log      *logger.Logger
}

func NewService(store repository.Store, calendar service.Calendar, log *logger.Logger) *Service {
	return &Service{store: store, calendar: calendar, log: log}
}

func (s *Service) Departments(ctx context.Context) ([]*model.Department, error) {
	departments, err := s.store.Departments().List(ctx)
	if err != nil {
		return nil, service.Internal(err, "list departments")
	}
	return departments, nil
}

func (s *Service) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	doctors, err := s.store.Doctors().List(ctx, filters)
	if err != nil {
		return nil, service.Internal(err, "list doctors")
	}
	return doctors, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.store.Doctors().Get(ctx, id)
	if err != nil {
		return nil, service.Lookup(err, "doctor")
	}
	return doctor, nil
}

// UpdateSchedule replaces the daily window normal bookings must fall in.
// Existing appointments are left where they are.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, start, end model.Clock) (*model.Doctor, error) {
	if start > end {
		return nil, apperrors.BadRequest("start_time must not be after end_time", nil)
	}
	if err := s.store.Doctors().UpdateSchedule(ctx, id, start, end); err != nil {
		return nil, service.Lookup(err, "doctor")
	}
	s.log.Info("doctor schedule updated",
		"doctor_id", id.String(),
		"start", start.String(),
		"end", end.String(),
	)
	return s.Get(ctx, id)
}

func (s *Service) AddLeave(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DoctorLeave, error) {
	if date.Before(s.calendar.Today()) {
		return nil, apperrors.BadRequest("leave date is in the past", nil)
	}
	if _, err := s.Get(ctx, doctorID); err != nil {
		return nil, err
	}

	leave := &model.DoctorLeave{ID: uuid.New(), DoctorID: doctorID, LeaveDate: date}
	err := s.store.Leaves().Create(ctx, leave)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.Conflict("Leave already recorded for this date", err)
	}
	if err != nil {
		return nil, service.Internal(err, "add leave")
	}
	return leave, nil
}

// Leaves lists leave days from today on.
func (s *Service) Leaves(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorLeave, error) {
	if _, err := s.Get(ctx, doctorID); err != nil {
		return nil, err
	}
	leaves, err := s.store.Leaves().ListFrom(ctx, doctorID, s.calendar.Today())
	if err != nil {
		return nil, service.Internal(err, "list leaves")
	}
	return leaves, nil
}

func (s *Service) RemoveLeave(ctx context.Context, doctorID uuid.UUID, date model.Date) error {
	if err := s.store.Leaves().Delete(ctx, doctorID, date); err != nil {
		return service.Lookup(err, "leave")
	}
	return nil
}
