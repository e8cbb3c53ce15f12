package json

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/cocoonstack/vmswap/lock"
	"github.com/cocoonstack/vmswap/storage"
	"github.com/cocoonstack/vmswap/utils"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// compile-time interface check.
var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

// Store is a storage.Store backed by one pretty-printed JSON file.
// Writes truncate and rewrite the file in place (no temp-file rename), so a
// crash mid-write can leave a corrupt document; Load reports that as
// storage.ErrCorrupt.
type Store[T any] struct {
	path      string
	locker    lock.Locker
	onCorrupt func(path string, err error)
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// TolerateCorrupt makes an undecodable document load as the zero T.
// report is called with the decode error each time that happens.
func TolerateCorrupt[T any](report func(path string, err error)) Option[T] {
	return func(s *Store[T]) { s.onCorrupt = report }
}

// New creates a Store for the document at path, serialized by locker.
func New[T any](path string, locker lock.Locker, opts ...Option[T]) *Store[T] {
	s := &Store[T]{path: path, locker: locker}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document path.
func (s *Store[T]) Path() string { return s.path }

// Load implements storage.Store.
func (s *Store[T]) Load(ctx context.Context) (T, error) {
	return lock.WithLockValue(ctx, s.locker, s.load)
}

// LoadStrict is Load without TolerateCorrupt: an undecodable document is
// returned as a storage.ErrCorrupt error even when the Store tolerates it.
func (s *Store[T]) LoadStrict(ctx context.Context) (T, error) {
	return lock.WithLockValue(ctx, s.locker, func() (T, error) { return s.decode(false) })
}

// Save implements storage.Store.
func (s *Store[T]) Save(ctx context.Context, v T) error {
	return lock.WithLock(ctx, s.locker, func() error {
		return s.save(v)
	})
}

// Update implements storage.Store.
func (s *Store[T]) Update(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		v, err := s.load()
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		return s.save(v)
	})
}

func (s *Store[T]) load() (T, error) { return s.decode(s.onCorrupt != nil) }

func (s *Store[T]) decode(tolerate bool) (T, error) {
	var v T
	data, err := os.ReadFile(s.path)
	if err != nil {
		if utils.IsNotExist(err) {
			return v, nil
		}
		return v, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := codec.Unmarshal(data, &v); err != nil {
		var zero T
		err = fmt.Errorf("decode %s: %w: %v", s.path, storage.ErrCorrupt, err) //nolint:errorlint
		if tolerate {
			s.onCorrupt(s.path, err)
			return zero, nil
		}
		return zero, err
	}
	return v, nil
}

func (s *Store[T]) save(v T) error {
	if err := utils.EnsureDirs(filepath.Dir(s.path)); err != nil {
		return err
	}
	data, err := codec.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
