package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, ReportKey("r1"))
			if err != nil {
				t.Error(err)
				return
			}
			defer release()
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, l.Held())
}

func TestLocalIndependentKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	releaseReport, err := l.Lock(ctx, ReportKey("r1"))
	require.NoError(t, err)
	releaseCategory, err := l.Lock(ctx, CategoryKey("r1"))
	require.NoError(t, err)
	assert.Equal(t, 2, l.Held())

	releaseReport()
	releaseReport()
	releaseCategory()
	assert.Zero(t, l.Held())
}

func TestLocalRespectsContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Held())
}

func newRedis(t *testing.T, opts RedisOptions) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return NewRedis(client, opts), mr
}

func TestRedisLockAndRelease(t *testing.T) {
	r, mr := newRedis(t, RedisOptions{Wait: 50 * time.Millisecond})
	ctx := context.Background()

	release, err := r.Lock(ctx, ReportKey("r1"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("relatai:lock:report:r1"))

	_, err = r.Lock(ctx, ReportKey("r1"))
	require.ErrorIs(t, err, ErrLockTimeout)

	release()
	assert.False(t, mr.Exists("relatai:lock:report:r1"))

	again, err := r.Lock(ctx, ReportKey("r1"))
	require.NoError(t, err)
	again()
}

func TestRedisWaitsForHolder(t *testing.T) {
	r, _ := newRedis(t, RedisOptions{Wait: 2 * time.Second})
	ctx := context.Background()

	release, err := r.Lock(ctx, "k")
	require.NoError(t, err)
	go func() {
		time.Sleep(30 * time.Millisecond)
		release()
	}()

	second, err := r.Lock(ctx, "k")
	require.NoError(t, err)
	second()
}

func TestRedisExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	r, mr := newRedis(t, RedisOptions{TTL: time.Second, Wait: 50 * time.Millisecond})
	ctx := context.Background()

	stale, err := r.Lock(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := r.Lock(ctx, "k")
	require.NoError(t, err)
	token, err := mr.Get("relatai:lock:k")
	require.NoError(t, err)

	stale()
	got, err := mr.Get("relatai:lock:k")
	require.NoError(t, err)
	assert.Equal(t, token, got)
	fresh()
	assert.False(t, mr.Exists("relatai:lock:k"))
}

func TestRedisUnavailable(t *testing.T) {
	r, mr := newRedis(t, RedisOptions{Wait: 50 * time.Millisecond})
	mr.SetError("LOADING server is loading")
	defer mr.SetError("")

	_, err := r.Lock(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLockTimeout))
}

func TestRedisHolderKeepsExtendingLock(t *testing.T) {
	r, mr := newRedis(t, RedisOptions{TTL: 300 * time.Millisecond, Wait: 50 * time.Millisecond})
	ctx := context.Background()

	release, err := r.Lock(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(250 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return mr.TTL("relatai:lock:k") > 250*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	// Well past the original expiry, the key is still ours.
	mr.FastForward(250 * time.Millisecond)
	require.True(t, mr.Exists("relatai:lock:k"))
	_, err = r.Lock(ctx, "k")
	require.ErrorIs(t, err, ErrLockTimeout)

	release()
	assert.False(t, mr.Exists("relatai:lock:k"))
}
