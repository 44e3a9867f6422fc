package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Register(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		ID:       uuid.New(),
		UserID:   req.UserID,
		FullName: req.FullName,
		Age:      req.Age,
		Gender:   req.Gender,
		Phone:    req.Phone,
	}
	err := s.store.Patients().Create(ctx, patient)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.Conflict("patient profile already exists for this user", err)
	}
	if err != nil {
		return nil, service.Internal(err, "register patient")
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.store.Patients().Get(ctx, id)
	if err != nil {
		return nil, service.Lookup(err, "patient")
	}
	return patient, nil
}

// History lists every appointment of the patient, newest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*model.AppointmentDetail, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	appts, err := s.store.Appointments().ListForPatient(ctx, id)
	if err != nil {
		return nil, service.Internal(err, "list appointments")
	}
	return appts, nil
}
