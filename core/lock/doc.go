// Package lock provides keyed mutual exclusion.
//
// Derived order state is rewritten by a single writer per order number at a time.
// The Locker interface hands out a critical section for an arbitrary string key;
// sections for different keys never contend.
//
// # Drivers
//
//   - local: an in-process, reference-counted map of mutexes. Suitable for a single
//     process and for tests.
//   - redis: distributed locks backed by github.com/bsm/redislock. Each lock carries
//     a TTL so a crashed holder cannot wedge a key forever, and acquisition retries
//     with exponential backoff until the wait timeout or the context expires.
//
// # Usage
//
//	locker, err := lock.New(cfg.Lock, logger)
//	unlock, err := locker.Lock(ctx, "order:53714")
//	if err != nil {
//	    return err
//	}
//	defer unlock()
package lock
