package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/cocoonstack/vmswap/lock"
)

const retryDelay = 100 * time.Millisecond

// compile-time interface check.
var _ lock.Locker = (*Lock)(nil)

// Lock provides cross-process mutual exclusion using flock(2) via gofrs/flock.
// A single Lock is also safe to share between goroutines: each acquisition
// takes an in-process slot first and then opens its own flock handle, since
// a gofrs Flock is re-entrant for the handle that holds it.
// Lock files are long-lived and never deleted after use.
type Lock struct {
	path string
	slot chan struct{}
	held *flock.Flock
}

// New creates a new Lock for the given path.
func New(path string) *Lock {
	return &Lock{path: path, slot: make(chan struct{}, 1)}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Lock acquires an exclusive flock. Blocks until the lock is available
// or the context is cancelled.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("failed to acquire flock %s: %w", l.path, ctx.Err())
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		<-l.slot
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	fl := flock.New(l.path)
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		<-l.slot
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	if !locked {
		<-l.slot
		return fmt.Errorf("failed to acquire flock %s: context done", l.path)
	}
	l.held = fl
	return nil
}

// Unlock releases the flock.
func (l *Lock) Unlock(_ context.Context) error {
	fl := l.held
	if fl == nil {
		return fmt.Errorf("release flock %s: not held", l.path)
	}
	l.held = nil
	defer func() { <-l.slot }()
	if err := fl.Close(); err != nil {
		return fmt.Errorf("release flock %s: %w", l.path, err)
	}
	return nil
}
