package notification

import (
	"context"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
)

// Emitter writes patient notifications as side effects of other operations.
// A failed write is logged and counted, never returned.
type Emitter struct {
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewEmitter(m *metrics.Metrics, log *logger.Logger) *Emitter {
	return &Emitter{metrics: m, log: log}
}

// Emit stores n through store. Inside a transaction the insert runs under a
// savepoint so the caller's transaction survives a failure.
func (e *Emitter) Emit(ctx context.Context, store repository.Store, n *model.Notification) bool {
	err := store.BestEffort(ctx, func(s repository.Store) error {
		return s.Notifications().Create(ctx, n)
	})
	e.metrics.Notifications.WithLabelValues(string(n.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		e.log.Error(err, "failed to emit notification",
			"type", string(n.Type),
			"patient_id", n.PatientID.String(),
		)
		return false
	}
	return true
}
