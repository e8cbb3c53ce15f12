package utils

import "github.com/google/uuid"

// NewID returns a random (v4) UUID string for newly created records.
func NewID() string {
	return uuid.NewString()
}
