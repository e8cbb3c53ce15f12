package swap

import (
	"fmt"
	"os"
)

// ValidationError reports a precondition file or directory that is missing.
// It unwraps to os.ErrNotExist.
type ValidationError struct {
	Op   string // "swap" or "restore"
	What string // human name of the missing item
	Path string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s not found: %s", e.Op, e.What, e.Path)
}

func (e *ValidationError) Unwrap() error { return os.ErrNotExist }
