package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
)

// Store implements repository.Store on PostgreSQL. A Store returned by New is
// bound to the pool; the Store handed to a WithTx callback is bound to the
// transaction.
type Store struct {
	db        *sqlx.DB
	ext       sqlx.ExtContext
	tx        *sqlx.Tx
	savepoint *int
	metrics   *metrics.Metrics
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

// WithMetrics records transaction outcomes and durations on m.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

func (s *Store) observe(status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.DatabaseOperations.WithLabelValues("transaction", status).Inc()
	s.metrics.DatabaseLatency.WithLabelValues("transaction").Observe(time.Since(start).Seconds())
}

func (s *Store) Doctors() repository.DoctorRepository {
	return &doctorRepository{db: s.ext}
}

func (s *Store) Departments() repository.DepartmentRepository {
	return &departmentRepository{db: s.ext}
}

func (s *Store) Patients() repository.PatientRepository {
	return &patientRepository{db: s.ext}
}

func (s *Store) Leaves() repository.LeaveRepository {
	return &leaveRepository{db: s.ext}
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{db: s.ext}
}

func (s *Store) Queues() repository.QueueRepository {
	return &queueRepository{db: s.ext}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{db: s.ext}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes a function within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.observe("begin_error", start)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			s.observe("rollback", start)
			panic(p)
		}
	}()

	var counter int
	if err := fn(&Store{db: s.db, ext: tx, tx: tx, savepoint: &counter, metrics: s.metrics}); err != nil {
		_ = tx.Rollback()
		s.observe("rollback", start)
		return err
	}

	if err := tx.Commit(); err != nil {
		s.observe("commit_error", start)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.observe("commit", start)
	return nil
}

// BestEffort wraps fn in a savepoint when running inside a transaction so a
// failing statement does not abort the transaction. Outside a transaction
// each statement commits on its own and fn runs directly.
func (s *Store) BestEffort(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx == nil {
		return fn(s)
	}

	*s.savepoint++
	name := fmt.Sprintf("best_effort_%d", *s.savepoint)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(s); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("failed to roll back savepoint after %v: %w", err, rbErr)
		}
		return err
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
