package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-queue/internal/model"
)

var (
	doctorID = uuid.MustParse("0e4d1a52-7d4b-4b0c-9f32-5b1c8f0e7a21")
	day      = model.NewDate(2024, time.January, 10)
)

func sampleStatus() *model.QueueStatus {
	reason := "Emergency break"
	return &model.QueueStatus{
		DoctorID:     doctorID,
		Date:         day,
		CurrentToken: 4,
		IsPaused:     true,
		PauseReason:  &reason,
		Waiting:      2,
	}
}

func encoded(t *testing.T, status *model.QueueStatus, gen int64) string {
	t.Helper()
	data, err := json.Marshal(entry{Generation: gen, Status: *status})
	require.NoError(t, err)
	return string(data)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "opd:queue-status:0e4d1a52-7d4b-4b0c-9f32-5b1c8f0e7a21:2024-01-10", key(doctorID, day))
	assert.Equal(t, "opd:queue-status-gen:0e4d1a52-7d4b-4b0c-9f32-5b1c8f0e7a21:2024-01-10", generationKey(doctorID, day))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, 30*time.Second)
	ctx := context.Background()
	status := sampleStatus()

	mock.ExpectGet(generationKey(doctorID, day)).SetVal("3")
	gen, err := c.Generation(ctx, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), gen)

	mock.ExpectSet(key(doctorID, day), []byte(encoded(t, status, 3)), 30*time.Second).SetVal("OK")
	require.NoError(t, c.Set(ctx, status, gen))

	mock.ExpectMGet(key(doctorID, day), generationKey(doctorID, day)).
		SetVal([]interface{}{encoded(t, status, 3), "3"})
	got, err := c.Get(ctx, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, status, got)

	mock.ExpectIncr(generationKey(doctorID, day)).SetVal(4)
	mock.ExpectExpire(generationKey(doctorID, day), generationTTL).SetVal(true)
	mock.ExpectDel(key(doctorID, day)).SetVal(1)
	require.NoError(t, c.Invalidate(ctx, doctorID, day))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheIgnoresOlderGeneration(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, time.Minute)

	mock.ExpectMGet(key(doctorID, day), generationKey(doctorID, day)).
		SetVal([]interface{}{encoded(t, sampleStatus(), 3), "4"})
	_, err := c.Get(context.Background(), doctorID, day)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCacheMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, time.Minute)

	mock.ExpectMGet(key(doctorID, day), generationKey(doctorID, day)).SetVal([]interface{}{nil, nil})
	_, err := c.Get(context.Background(), doctorID, day)
	assert.ErrorIs(t, err, ErrMiss)

	mock.ExpectGet(generationKey(doctorID, day)).RedisNil()
	gen, err := c.Generation(context.Background(), doctorID, day)
	require.NoError(t, err)
	assert.Zero(t, gen)
}

func TestRedisCacheErrorIsNotAMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, time.Minute)

	mock.ExpectMGet(key(doctorID, day), generationKey(doctorID, day)).SetErr(errors.New("connection refused"))
	_, err := c.Get(context.Background(), doctorID, day)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestRedisCacheZeroTTLFallsBackToDefault(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, 0)
	status := sampleStatus()

	mock.ExpectSet(key(doctorID, day), []byte(encoded(t, status, 0)), DefaultTTL).SetVal("OK")
	require.NoError(t, c.Set(context.Background(), status, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalCache(t *testing.T) {
	c := NewLocalCache(time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, doctorID, day)
	assert.ErrorIs(t, err, ErrMiss)

	status := sampleStatus()
	gen, err := c.Generation(ctx, doctorID, day)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, status, gen))

	got, err := c.Get(ctx, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, status, got)

	got.CurrentToken = 99
	again, err := c.Get(ctx, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, 4, again.CurrentToken, "callers must not be able to mutate cached entries")

	require.NoError(t, c.Invalidate(ctx, doctorID, day))
	_, err = c.Get(ctx, doctorID, day)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLocalCacheDropsSnapshotTakenBeforeInvalidate(t *testing.T) {
	c := NewLocalCache(time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, doctorID, day)
	require.NoError(t, err)

	// A writer commits and invalidates while the reader is still querying.
	require.NoError(t, c.Invalidate(ctx, doctorID, day))
	require.NoError(t, c.Set(ctx, sampleStatus(), gen))

	_, err = c.Get(ctx, doctorID, day)
	assert.ErrorIs(t, err, ErrMiss)

	fresh, err := c.Generation(ctx, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, gen+1, fresh)
	require.NoError(t, c.Set(ctx, sampleStatus(), fresh))
	_, err = c.Get(ctx, doctorID, day)
	assert.NoError(t, err)
}

func TestLocalCacheZeroTTLStillExpires(t *testing.T) {
	c := NewLocalCache(0)
	assert.Equal(t, DefaultTTL, c.ttl)

	require.NoError(t, c.Set(context.Background(), sampleStatus(), 0))
	_, expiry, found := c.c.GetWithExpiration(key(doctorID, day))
	require.True(t, found)
	assert.False(t, expiry.IsZero(), "entries must carry an expiry")
}

func TestRedisCachePing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, time.Minute)

	mock.ExpectPing().SetVal("PONG")
	require.NoError(t, c.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.Error(t, c.Ping(context.Background()))
}
