package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the handle every service works through. Inside WithTx the Store
// passed to fn is bound to the transaction; calling WithTx on it again joins
// the same transaction.
type Store interface {
	Doctors() DoctorRepository
	Departments() DepartmentRepository
	Patients() PatientRepository
	Leaves() LeaveRepository
	Appointments() AppointmentRepository
	Queues() QueueRepository
	Notifications() NotificationRepository

	// WithTx runs fn in a transaction that is committed when fn returns nil
	// and rolled back otherwise, including on panic.
	WithTx(ctx context.Context, fn func(Store) error) error
	// BestEffort runs fn so that its failure leaves the surrounding
	// transaction usable. Writes made by a failed fn are discarded.
	BestEffort(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}

// All repository interfaces in one file
type (
	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
		UpdateSchedule(ctx context.Context, id uuid.UUID, start, end model.Clock) error
		SetPause(ctx context.Context, id uuid.UUID, paused bool, reason *string) error
	}

	DepartmentRepository interface {
		List(ctx context.Context) ([]*model.Department, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	LeaveRepository interface {
		Create(ctx context.Context, leave *model.DoctorLeave) error
		Delete(ctx context.Context, doctorID uuid.UUID, date model.Date) error
		Exists(ctx context.Context, doctorID uuid.UUID, date model.Date) (bool, error)
		ListFrom(ctx context.Context, doctorID uuid.UUID, from model.Date) ([]*model.DoctorLeave, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// GetForUpdate reads the row and holds a row lock until the
		// transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		// SlotTaken reports whether a non-cancelled appointment sits at the
		// exact (doctor, date, time). excludeID, when set, is ignored.
		SlotTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, at model.Clock, excludeID *uuid.UUID) (bool, error)
		// MaxToken returns the highest token issued for (doctor, date), 0 if none.
		MaxToken(ctx context.Context, doctorID uuid.UUID, date model.Date) (int, error)
		// NextPending locks and returns the lowest-token pending appointment.
		NextPending(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.Appointment, error)
		ListForDoctor(ctx context.Context, doctorID uuid.UUID, date model.Date, statuses ...model.AppointmentStatus) ([]*model.AppointmentDetail, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error)
		// DueForReminder locks the patient's pending appointments on date whose
		// time lies in [from, to].
		DueForReminder(ctx context.Context, patientID uuid.UUID, date model.Date, from, to model.Clock) ([]*model.Appointment, error)
		CountByStatus(ctx context.Context, doctorID uuid.UUID, date model.Date, status model.AppointmentStatus) (int, error)
	}

	QueueRepository interface {
		// Ensure inserts a queue row with current_token 0 unless one exists.
		// An existing row is never modified. created reports whether this
		// call inserted it.
		Ensure(ctx context.Context, doctorID uuid.UUID, date model.Date) (created bool, err error)
		// Lock reads the queue row and holds a row lock until the
		// transaction ends.
		Lock(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error)
		Get(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error)
		SetCurrentToken(ctx context.Context, doctorID uuid.UUID, date model.Date, token int) error
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID, typ model.NotificationType) (bool, error)
		ListUnread(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id uuid.UUID) error
		MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error)
	}
)
