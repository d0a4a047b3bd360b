package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"
)

// RedisLocker is a distributed Locker built on redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedis wraps a redis client into a Locker.
func NewRedis(rdb redislock.RedisClient, cfg Config, logger *zap.Logger) *RedisLocker {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   time.Duration(cfg.WaitSeconds) * time.Second,
		logger: logger,
	}
}

// Lock implements Locker.
func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if r.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	opts := &redislock.Options{
		RetryStrategy: redislock.ExponentialBackoff(10*time.Millisecond, 500*time.Millisecond),
	}

	l, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	} else if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	// Extend the TTL while held so a slow transaction keeps its exclusion.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, r.ttl/2, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/2)
			defer cancel()
			return l.Refresh(ctx, r.ttl, nil)
		}, func(err error) {
			r.logger.Warn("Failed to refresh redis lock", zap.String("key", key), zap.Error(err))
		})
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Release with a fresh context: the caller's ctx may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.logger.Warn("Failed to release redis lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

// keepAlive calls refresh every interval until stop is closed. A lock that could not
// be refreshed is lost, so the loop ends after reporting the first failure.
func keepAlive(stop <-chan struct{}, interval time.Duration, refresh func() error, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := refresh(); err != nil {
				onErr(err)
				return
			}
		}
	}
}
