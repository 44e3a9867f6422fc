package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/opd-queue/internal/model"
)

// LocalCache keeps entries in process memory. Each API instance has its own
// copy, which is fine for a single-node deployment.
type LocalCache struct {
	mu  sync.Mutex
	c   *gocache.Cache
	ttl time.Duration
}

func NewLocalCache(ttl time.Duration) *LocalCache {
	ttl = ttlOrDefault(ttl)
	return &LocalCache{c: gocache.New(ttl, 2*ttl), ttl: ttl}
}

func (l *LocalCache) Generation(_ context.Context, doctorID uuid.UUID, date model.Date) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation(doctorID, date), nil
}

func (l *LocalCache) Get(_ context.Context, doctorID uuid.UUID, date model.Date) (*model.QueueStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.c.Get(key(doctorID, date))
	if !ok {
		return nil, ErrMiss
	}
	e := v.(entry)
	if e.Generation != l.generation(doctorID, date) {
		return nil, ErrMiss
	}
	status := e.Status
	return &status, nil
}

func (l *LocalCache) Set(_ context.Context, status *model.QueueStatus, generation int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.SetDefault(key(status.DoctorID, status.Date), entry{Generation: generation, Status: *status})
	return nil
}

func (l *LocalCache) Invalidate(_ context.Context, doctorID uuid.UUID, date model.Date) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Set(generationKey(doctorID, date), l.generation(doctorID, date)+1, generationTTL)
	l.c.Delete(key(doctorID, date))
	return nil
}

func (l *LocalCache) Ping(context.Context) error { return nil }

func (l *LocalCache) generation(doctorID uuid.UUID, date model.Date) int64 {
	if v, ok := l.c.Get(generationKey(doctorID, date)); ok {
		return v.(int64)
	}
	return 0
}
