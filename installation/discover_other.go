//go:build !windows

package installation

import (
	"fmt"
	"runtime"
)

// Discover is only supported on Windows, where the installation root is
// recorded in the registry.
func Discover() (string, error) {
	return "", fmt.Errorf("%w: discovery not supported on %s", ErrNotInstalled, runtime.GOOS)
}
