package manager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cocoonstack/vmswap/installation"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/utils"
)

// LoadSettings returns the settings document (zero value if never saved).
func (m *Manager) LoadSettings(ctx context.Context) (types.Settings, error) {
	return m.store.LoadSettings(ctx)
}

// SaveSettings replaces the settings document.
func (m *Manager) SaveSettings(ctx context.Context, settings types.Settings) error {
	return m.store.SaveSettings(ctx, settings)
}

// ValidateInstallation checks that path is a usable installation root.
func (m *Manager) ValidateInstallation(path string) error {
	return installation.Validate(path)
}

// DiscoverInstallation looks up the installation root on this host.
func (m *Manager) DiscoverInstallation() (string, error) {
	return installation.Discover()
}

// SetInstallation validates root and saves it as the installation path,
// recording the stock BIOS image and executable found there.
func (m *Manager) SetInstallation(ctx context.Context, root string) (types.Settings, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return types.Settings{}, fmt.Errorf("resolve %s: %w", root, err)
	}
	if err := installation.Validate(abs); err != nil {
		return types.Settings{}, err
	}
	settings, err := m.store.LoadSettings(ctx)
	if err != nil {
		return types.Settings{}, err
	}
	layout := installation.New(abs)
	settings.InstallationPath = layout.Root
	settings.OriginalBIOSPath = ""
	if utils.FileExists(layout.BIOSPath()) {
		settings.OriginalBIOSPath = layout.BIOSPath()
	}
	settings.OriginalExecutablePath = layout.ExecutablePath()
	if err := m.store.SaveSettings(ctx, settings); err != nil {
		return types.Settings{}, err
	}
	return settings, nil
}
