package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/sage/pkg/models"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)

	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return Wrap(rdb, zapadapter.NewZapEctoLogger(zapLogger, nil)), s
}

func TestLocker_AcquireRelease(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewLocker(client, "")
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "variation:v-1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "variation:v-1", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	again, err := locker.Acquire(ctx, "variation:v-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_AcquireWait_TimesOut(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewLocker(client, "")
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	defer held.Release(ctx)

	_, err = locker.AcquireWait(ctx, "k", time.Minute, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestLocker_AcquireWait_AfterRelease(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewLocker(client, "")
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	lock, err := locker.AcquireWait(ctx, "k", time.Minute, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
}

func TestLock_ExpiresWithTTL(t *testing.T) {
	client, s := newTestClient(t)
	locker := NewLocker(client, "")
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Extend(ctx, 10*time.Second))

	s.FastForward(11 * time.Second)
	assert.ErrorIs(t, lock.Extend(ctx, time.Second), ErrLockNotHeld)
}

func TestDeadLetterQueue(t *testing.T) {
	client, _ := newTestClient(t)
	dlq := NewDeadLetterQueue(client, "", client.logger)
	ctx := context.Background()

	_, err := dlq.Add(ctx, &DLQEntry{
		Request:      models.LookupRequest{RequestID: "r-1", Query: "iphone 16"},
		Kind:         "capacity",
		ErrorMessage: "crawl capacity exhausted",
	})
	require.NoError(t, err)
	_, err = dlq.Add(ctx, &DLQEntry{
		Request: models.LookupRequest{RequestID: "r-2", Query: "galaxy s24"},
		Kind:    "collaborator",
	})
	require.NoError(t, err)

	count, err := dlq.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	entries, err := dlq.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "r-2", entries[0].Request.RequestID)
	assert.Equal(t, "r-1", entries[1].Request.RequestID)
	assert.NotEmpty(t, entries[1].ID)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestClient_JSON(t *testing.T) {
	client, s := newTestClient(t)
	ctx := context.Background()

	var missing map[string]string
	assert.ErrorIs(t, client.GetJSON(ctx, "absent", &missing), ErrNotFound)

	require.NoError(t, client.SetJSON(ctx, "k", map[string]string{"sku": "IP16-128-BLK"}, time.Minute))
	assert.Equal(t, time.Minute, s.TTL("k"))

	var got map[string]string
	require.NoError(t, client.GetJSON(ctx, "k", &got))
	assert.Equal(t, "IP16-128-BLK", got["sku"])

	require.NoError(t, client.Delete(ctx, "k"))
	assert.False(t, s.Exists("k"))
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), Config{Host: s.Host(), Port: port}, logger)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()))

	s.Close()
	_, err = NewClient(context.Background(), Config{Host: "127.0.0.1", Port: port}, logger)
	assert.Error(t, err)
}
