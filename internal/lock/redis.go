package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock re-acquired by another process is never released by us.
var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still carries our token.
var extendScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var errHeld = errors.New("lock held by another owner")

// Redis is a Locker shared by every process pointing at the same redis.
// TTL bounds how long a crashed holder can block others; a live holder keeps
// extending it every TTL/3 until release.
type Redis struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

type RedisOptions struct {
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
}

func NewRedis(client rueidis.Client, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "relatai:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 10 * time.Second
	}
	return &Redis{client: client, prefix: opts.Prefix, ttl: opts.TTL, wait: opts.Wait}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	acquire := func() error {
		err := r.client.Do(ctx, r.client.B().Set().
			Key(redisKey).
			Value(token).
			Nx().
			Px(r.ttl).
			Build()).Error()
		if rueidis.IsRedisNil(err) {
			return errHeld
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to acquire %s: %w", key, err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(5*time.Millisecond),
		backoff.WithMaxInterval(100*time.Millisecond),
		backoff.WithMaxElapsedTime(r.wait),
	)
	if err := backoff.Retry(acquire, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errHeld) {
			return nil, fmt.Errorf("%s: %w", key, ErrLockTimeout)
		}
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(redisKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// The caller's context may already be done; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := releaseScript.Exec(releaseCtx, r.client, []string{redisKey}, []string{token}).Error()
			if err != nil {
				slog.Error("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive extends the key until stop closes or the token is no longer ours.
func (r *Redis) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	ttl := strconv.FormatInt(r.ttl.Milliseconds(), 10)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		extended, err := extendScript.Exec(ctx, r.client, []string{redisKey}, []string{token, ttl}).AsInt64()
		cancel()
		switch {
		case err != nil:
			slog.Error("failed to extend lock", "key", redisKey, "error", err)
		case extended == 0:
			slog.Error("lock lost before release", "key", redisKey, "action", "lock")
			return
		}
	}
}
