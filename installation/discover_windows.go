//go:build windows

package installation

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

var registryKeys = []string{
	`SOFTWARE\WOW6432Node\VMware, Inc.\VMware Workstation`,
	`SOFTWARE\VMware, Inc.\VMware Workstation`,
}

// Discover reads the installation root from the registry.
func Discover() (string, error) {
	var lastErr error
	for _, path := range registryKeys {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
		if err != nil {
			lastErr = err
			continue
		}
		root, _, err := k.GetStringValue("InstallPath")
		_ = k.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return root, nil
	}
	return "", fmt.Errorf("%w: %v", ErrNotInstalled, lastErr) //nolint:errorlint
}
