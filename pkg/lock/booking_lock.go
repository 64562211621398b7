package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock is already held.
var ErrNotAcquired = fmt.Errorf("lock not acquired")

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another request is never released by us.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// BookingLocker serializes conflict-check-and-insert sequences per
// (doctor, date) key using redis SET NX with a TTL.
type BookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookingLocker builds a locker with the given lease TTL.
func NewBookingLocker(client *redis.Client, ttl time.Duration) *BookingLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &BookingLocker{client: client, ttl: ttl}
}

// Lease is a held lock that must be released by the owner.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock for the given doctor and date, retrying briefly
// before giving up with ErrNotAcquired.
func (l *BookingLocker) Acquire(ctx context.Context, doctorID string, date time.Time) (*Lease, error) {
	key := fmt.Sprintf("booking:%s:%s", doctorID, date.Format("2006-01-02"))
	token := uuid.NewString()

	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire booking lock: %w", err)
		}
		if ok {
			return &Lease{client: l.client, key: key, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Release frees the lock if this lease still owns it.
func (le *Lease) Release(ctx context.Context) error {
	if le == nil {
		return nil
	}
	if err := le.client.Eval(ctx, releaseScript, []string{le.key}, le.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
