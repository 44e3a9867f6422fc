package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
)

// LockDay makes sure the (doctor, date) queue row exists and row-locks it
// for the rest of tx. Every writer that hands out tokens or moves the serving
// pointer for that pair goes through here first, which is what serialises
// them.
func LockDay(ctx context.Context, tx repository.Store, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error) {
	if _, err := tx.Queues().Ensure(ctx, doctorID, date); err != nil {
		return nil, err
	}
	queue, err := tx.Queues().Lock(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to lock daily queue: %w", err)
	}
	return queue, nil
}

// NextToken returns max(token)+1 for (doctor, date). It must run under the
// lock taken by LockDay.
func NextToken(ctx context.Context, tx repository.Store, doctorID uuid.UUID, date model.Date) (int, error) {
	maxToken, err := tx.Appointments().MaxToken(ctx, doctorID, date)
	if err != nil {
		return 0, err
	}
	return maxToken + 1, nil
}
