package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when a key could not be locked before the wait timeout.
var ErrNotObtained = errors.New("lock not obtained")

// Unlock releases a key obtained from a Locker. It is safe to call once.
type Unlock func()

// Locker hands out critical sections scoped to a single key.
type Locker interface {
	// Lock blocks until key is held, the wait timeout elapses or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// New builds the Locker selected by cfg.Driver.
func New(cfg Config, logger *zap.Logger) (Locker, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		return NewLocal(time.Duration(cfg.WaitSeconds) * time.Second), nil
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown lock driver: %s", cfg.Driver)
	}
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// LocalLocker is an in-process Locker. Entries are dropped once no goroutine holds
// or waits for them, so the map only grows with live contention.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

// NewLocal creates an in-process locker. A zero wait means wait until ctx is done.
func NewLocal(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		entries: make(map[string]*entry),
		wait:    wait,
	}
}

// Lock implements Locker.
func (l *LocalLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		var once sync.Once
		return func() {
			once.Do(func() {
				e.mu.Unlock()
				l.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		// The waiter goroutine still owns a pending Lock; hand the mutex back as soon
		// as it gets it.
		go func() {
			<-acquired
			e.mu.Unlock()
			l.release(key, e)
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
		}
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
