// Package cache keeps recently read queue status so polling patients do not
// hit the database on every refresh.
//
// Every (doctor, date) entry carries a generation. Writers bump it after
// they commit, and an entry stored under an older generation is treated as
// a miss, so a read that raced a commit can never put its snapshot back.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
)

// DefaultTTL applies when a cache is built with a non-positive ttl; both
// backends would otherwise keep entries forever.
const DefaultTTL = 5 * time.Second

// generationTTL outlives any status entry by far and lets day-old counters
// fall away.
const generationTTL = 48 * time.Hour

// ErrMiss is returned by Get when nothing current is cached for the key.
var ErrMiss = errors.New("cache miss")

type QueueStatusCache interface {
	// Generation must be read before the database so Set can tag the
	// snapshot with it.
	Generation(ctx context.Context, doctorID uuid.UUID, date model.Date) (int64, error)
	Get(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.QueueStatus, error)
	Set(ctx context.Context, status *model.QueueStatus, generation int64) error
	// Invalidate advances the generation and drops the entry.
	Invalidate(ctx context.Context, doctorID uuid.UUID, date model.Date) error
	Ping(ctx context.Context) error
}

type entry struct {
	Generation int64             `json:"generation"`
	Status     model.QueueStatus `json:"status"`
}

func key(doctorID uuid.UUID, date model.Date) string {
	return fmt.Sprintf("opd:queue-status:%s:%s", doctorID, date)
}

func generationKey(doctorID uuid.UUID, date model.Date) string {
	return fmt.Sprintf("opd:queue-status-gen:%s:%s", doctorID, date)
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
