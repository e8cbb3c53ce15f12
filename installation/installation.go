// Package installation resolves the files inside a VMware Workstation
// installation root.
package installation

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/utils"
)

const (
	// BIOSFile is the BIOS image at the installation root.
	BIOSFile = "BIOS.440.ROM"
	// ExecutableDir is the subdirectory holding the hypervisor executable.
	ExecutableDir = "x64"
	// ExecutableFile is the hypervisor executable substituted by profiles.
	ExecutableFile = "vmware-vmx.exe"
	// BackupSuffix is appended to the executable path to form the backup path.
	BackupSuffix = ".bak"

	defaultProfileName = "Default hardware"
)

// ErrNotInstalled is returned when no usable installation can be found.
var ErrNotInstalled = errors.New("VMware Workstation installation not found")

// Layout exposes the concrete paths inside an installation root.
type Layout struct {
	Root string
}

// New returns the Layout for root.
func New(root string) Layout { return Layout{Root: filepath.Clean(root)} }

func (l Layout) BIOSPath() string       { return filepath.Join(l.Root, BIOSFile) }
func (l Layout) ExecutableDir() string  { return filepath.Join(l.Root, ExecutableDir) }
func (l Layout) ExecutablePath() string { return filepath.Join(l.ExecutableDir(), ExecutableFile) }
func (l Layout) BackupPath() string     { return l.ExecutablePath() + BackupSuffix }

// Validate checks that root is an installation with a hypervisor executable.
func Validate(root string) error {
	if root == "" {
		return fmt.Errorf("%w: empty path", ErrNotInstalled)
	}
	l := New(root)
	if !utils.DirExists(l.Root) {
		return fmt.Errorf("%w: %s is not a directory", ErrNotInstalled, l.Root)
	}
	if !utils.DirExists(l.ExecutableDir()) {
		return fmt.Errorf("%w: missing %s", ErrNotInstalled, l.ExecutableDir())
	}
	if !utils.FileExists(l.ExecutablePath()) {
		return fmt.Errorf("%w: missing %s", ErrNotInstalled, l.ExecutablePath())
	}
	return nil
}

// DefaultProfile probes root for the stock BIOS image and executable and
// returns them as the reserved default profile. It returns nil when either
// file is absent.
func DefaultProfile(root string) *types.HardwareProfile {
	l := New(root)
	exe := l.ExecutablePath()
	if utils.FileExists(l.BackupPath()) {
		// After a swap the installed executable may be a custom one; the
		// backup is the vendor original.
		exe = l.BackupPath()
	}
	if !utils.FileExists(l.BIOSPath()) || !utils.FileExists(exe) {
		return nil
	}
	return &types.HardwareProfile{
		ID:             types.DefaultProfileID,
		Name:           defaultProfileName,
		BIOSPath:       l.BIOSPath(),
		ExecutablePath: exe,
		CreatedAt:      time.Now(),
	}
}
