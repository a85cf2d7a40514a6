package redisclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, wait time.Duration) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 2*time.Second, wait), mr
}

func TestWithLock_ReleasesKey(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	key := "lock:test:release"

	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		assert.True(t, mr.Exists(key))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

func TestWithLock_PropagatesError(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "lock:test:err", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:test:err"))
}

func TestWithLock_BusyKey(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	key := "lock:test:busy"
	require.NoError(t, mr.Set(key, "someone-else"))

	called := false
	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)

	// a foreign token must survive our failed attempt
	got, _ := mr.Get(key)
	assert.Equal(t, "someone-else", got)
}

func TestWithLock_SerializesHolders(t *testing.T) {
	locker, _ := newTestLocker(t, 2*time.Second)
	key := "lock:test:serial"

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestPractitionerDayKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "lock:practitioner:11111111-2222-3333-4444-555555555555:2026-10-20", PractitionerDayKey(id, date))
}
