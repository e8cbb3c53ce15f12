package lock

import "context"

// Locker provides mutual exclusion with context support.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// WithLock acquires the lock, calls fn, and releases the lock.
// If fn returns an error, the lock is still released.
func WithLock(ctx context.Context, l Locker, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer l.Unlock(context.WithoutCancel(ctx)) //nolint:errcheck
	return fn()
}

// WithLockValue is WithLock for functions that produce a value.
func WithLockValue[T any](ctx context.Context, l Locker, fn func() (T, error)) (T, error) {
	var out T
	err := WithLock(ctx, l, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
