package config

import (
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/cocoonstack/vmswap/utils"
)

// EnsureDirs creates the static directories under RootDir.
func (c *Config) EnsureDirs() error {
	return utils.EnsureDirs(c.RootDir, c.lockDir())
}

// Document paths. File names are kept compatible with the desktop manager.

func (c *Config) ProfilesFile() string   { return filepath.Join(c.RootDir, "hardware_config.json") }
func (c *Config) ContainersFile() string { return filepath.Join(c.RootDir, "container_config.json") }
func (c *Config) SettingsFile() string   { return filepath.Join(c.RootDir, "settings.json") }

// Lock paths, one per collection plus one per installation.

func (c *Config) lockDir() string        { return filepath.Join(c.RootDir, "locks") }
func (c *Config) ProfilesLock() string   { return filepath.Join(c.lockDir(), "hardware.lock") }
func (c *Config) ContainersLock() string { return filepath.Join(c.lockDir(), "container.lock") }
func (c *Config) SettingsLock() string   { return filepath.Join(c.lockDir(), "settings.lock") }

// SubstitutionLock returns the lock file guarding the installed executable
// of the installation at installRoot. The name is derived from the cleaned
// root so different spellings of the same path share one lock.
func (c *Config) SubstitutionLock(installRoot string) string {
	d := digest.FromString(filepath.Clean(installRoot))
	return filepath.Join(c.lockDir(), "install-"+d.Encoded()[:16]+".lock")
}
