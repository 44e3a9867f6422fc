// Package availability decides whether a doctor's slot can be booked.
package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/service"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

const (
	MsgOnLeave     = "Doctor is on leave on this date"
	MsgSlotBooked  = "Slot already booked"
	msgOutOfWindow = "Doctor available only between %s and %s"
)

type Request struct {
	DoctorID uuid.UUID
	Date     model.Date
	// Time is nil when only the day is being asked about; the schedule and
	// slot checks are then skipped.
	Time      *model.Clock
	Emergency bool
	// ExcludeID skips an appointment in the slot check, used when an
	// appointment is moved.
	ExcludeID *uuid.UUID
}

type Checker struct {
	store repository.Store
}

func NewChecker(store repository.Store) *Checker {
	return &Checker{store: store}
}

// Check returns nil when the slot is bookable, otherwise an *AppError whose
// message is the reason shown to the patient. It only reads, through store,
// so callers holding a transaction pass it in to see their own locks.
//
// The leave check comes first and applies to emergencies too. Emergencies
// bypass only the schedule window. Slot collisions are exact-time matches.
func (c *Checker) Check(ctx context.Context, store repository.Store, req Request) error {
	doctor, err := store.Doctors().Get(ctx, req.DoctorID)
	if err != nil {
		return service.Lookup(err, "doctor")
	}

	onLeave, err := store.Leaves().Exists(ctx, req.DoctorID, req.Date)
	if err != nil {
		return service.Internal(err, "check leave")
	}
	if onLeave {
		return apperrors.BadRequest(MsgOnLeave, nil)
	}

	if req.Time == nil {
		return nil
	}

	if !req.Emergency && !doctor.Covers(*req.Time) {
		return apperrors.BadRequest(fmt.Sprintf(msgOutOfWindow, doctor.ScheduleStart, doctor.ScheduleEnd), nil)
	}

	taken, err := store.Appointments().SlotTaken(ctx, req.DoctorID, req.Date, *req.Time, req.ExcludeID)
	if err != nil {
		return service.Internal(err, "check slot")
	}
	if taken {
		return apperrors.Conflict(MsgSlotBooked, nil)
	}

	return nil
}

// Available reports a denial as a result rather than an error. Unknown
// doctors and store failures are still errors.
func (c *Checker) Available(ctx context.Context, req Request) (*model.AvailabilityResult, error) {
	err := c.Check(ctx, c.store, req)
	if err == nil {
		return &model.AvailabilityResult{Available: true}, nil
	}
	if appErr, ok := apperrors.As(err); ok &&
		(appErr.Code == apperrors.ErrBadRequest || appErr.Code == apperrors.ErrConflict) {
		return &model.AvailabilityResult{Available: false, Message: appErr.Message}, nil
	}
	return nil, err
}
