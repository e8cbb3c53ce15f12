package storage

import (
	"context"
	"errors"
)

// ErrCorrupt is returned by Load when a document exists but cannot be decoded.
var ErrCorrupt = errors.New("document is not decodable")

// Store persists a single document of type T. Every call replaces or returns
// the whole document; there is no partial update.
type Store[T any] interface {
	// Load returns the stored document, or the zero T when no document exists
	// or the file is empty.
	Load(context.Context) (T, error)
	// Save replaces the stored document with v.
	Save(context.Context, T) error
	// Update loads the document, applies fn and saves the result while
	// holding the store lock. Nothing is written if fn returns an error.
	Update(context.Context, func(*T) error) error
}
