// Package swap substitutes the installed hypervisor executable with a
// profile's custom executable and restores the original afterwards.
//
// The first swap on an installation copies the installed executable to a
// sibling backup file. That backup is never overwritten, so it keeps the
// vendor original across any number of swap/restore cycles. The price is
// that a vendor update of the executable is not picked up by the backup.
package swap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/installation"
	"github.com/cocoonstack/vmswap/utils"
)

const releasePollInterval = 200 * time.Millisecond

// State is the substitution state of an installation as seen on disk.
type State string

const (
	// StateOriginal: no backup exists; the installed executable is the vendor one.
	StateOriginal State = "original"
	// StateBackedUp: a backup exists and matches the installed executable.
	// This is also the state after a restore; the two look the same on disk.
	StateBackedUp State = "backed-up"
	// StateSwapped: the installed executable differs from the backup.
	StateSwapped State = "swapped"
)

// Status describes an installation's executable and backup.
type Status struct {
	State          State         `json:"state"`
	Executable     string        `json:"executable"`
	ExecutableSize int64         `json:"executable_size"`
	ExecutableHash digest.Digest `json:"executable_digest,omitempty"`
	Backup         string        `json:"backup"`
	BackupHash     digest.Digest `json:"backup_digest,omitempty"`
}

// Engine performs swaps and restores. It holds no per-installation state;
// callers serialize access to an installation (see operation.Orchestrator).
type Engine struct {
	releaseWait time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithReleaseWait makes Swap and Restore wait up to d for processes running
// the installed executable to exit before overwriting it. Zero only checks once.
func WithReleaseWait(d time.Duration) Option {
	return func(e *Engine) { e.releaseWait = d }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Swap installs customExecutable over the layout's executable, creating the
// one-time backup first if it does not exist yet. If a precondition is
// missing it returns a *ValidationError and changes nothing on disk.
func (e *Engine) Swap(ctx context.Context, layout installation.Layout, customExecutable string) error {
	logger := log.WithFunc("swap.Swap")
	installed := layout.ExecutablePath()
	backup := layout.BackupPath()

	switch {
	case !utils.DirExists(layout.ExecutableDir()):
		return &ValidationError{Op: "swap", What: "executable directory", Path: layout.ExecutableDir()}
	case !utils.FileExists(installed):
		return &ValidationError{Op: "swap", What: "installed executable", Path: installed}
	case !utils.FileExists(customExecutable):
		return &ValidationError{Op: "swap", What: "custom executable", Path: customExecutable}
	}

	e.waitForRelease(ctx, installed)

	if !utils.FileExists(backup) {
		if err := copyVerified(installed, backup); err != nil {
			// A partial backup would be kept forever; drop it so the next
			// swap tries again from the intact executable.
			_ = os.Remove(backup)
			return fmt.Errorf("swap: create backup: %w", err)
		}
		logger.Infof(ctx, "backed up %s -> %s", installed, backup)
	}

	same, err := sameFile(customExecutable, installed)
	if err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	if same {
		logger.Infof(ctx, "%s is already the installed executable, nothing to copy", customExecutable)
		return nil
	}
	if err := copyVerified(customExecutable, installed); err != nil {
		return fmt.Errorf("swap: install %s: %w", customExecutable, err)
	}
	logger.Infof(ctx, "swapped %s -> %s", customExecutable, installed)
	return nil
}

// Restore copies the backup over the installed executable. The backup is
// kept. It fails with a *ValidationError if no backup exists.
func (e *Engine) Restore(ctx context.Context, layout installation.Layout) error {
	installed := layout.ExecutablePath()
	backup := layout.BackupPath()
	if !utils.FileExists(backup) {
		return &ValidationError{Op: "restore", What: "backup", Path: backup}
	}
	e.waitForRelease(ctx, installed)
	if err := copyVerified(backup, installed); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	log.WithFunc("swap.Restore").Infof(ctx, "restored %s from %s", installed, backup)
	return nil
}

// Inspect reports the on-disk substitution state of layout.
func (e *Engine) Inspect(layout installation.Layout) (*Status, error) {
	st := &Status{
		Executable: layout.ExecutablePath(),
		Backup:     layout.BackupPath(),
	}
	fi, err := os.Stat(st.Executable)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	st.ExecutableSize = fi.Size()
	if st.ExecutableHash, err = utils.FileDigest(st.Executable); err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	if !utils.FileExists(st.Backup) {
		st.State = StateOriginal
		return st, nil
	}
	if st.BackupHash, err = utils.FileDigest(st.Backup); err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	if st.BackupHash == st.ExecutableHash {
		st.State = StateBackedUp
	} else {
		st.State = StateSwapped
	}
	return st, nil
}

// waitForRelease logs processes still executing path. It never fails: a
// busy executable surfaces as a copy error on platforms that lock it.
func (e *Engine) waitForRelease(ctx context.Context, path string) {
	logger := log.WithFunc("swap.waitForRelease")
	var pids []int
	check := func() (bool, error) {
		var err error
		pids, err = utils.ProcessesUsing(ctx, path)
		if err != nil {
			logger.Debugf(ctx, "list processes: %v", err)
			return true, nil
		}
		return len(pids) == 0, nil
	}
	if e.releaseWait <= 0 {
		_, _ = check()
	} else {
		_ = utils.WaitFor(ctx, e.releaseWait, releasePollInterval, check)
	}
	if len(pids) > 0 {
		logger.Warnf(ctx, "%s is in use by pid(s) %v", path, pids)
	}
}

// copyVerified copies src over dst and re-reads dst to check its digest.
func copyVerified(src, dst string) error {
	want, err := utils.CopyFile(src, dst)
	if err != nil {
		return err
	}
	got, err := utils.FileDigest(dst)
	if err != nil {
		return fmt.Errorf("verify %s: %w", dst, err)
	}
	if got != want {
		return fmt.Errorf("verify %s: digest %s, want %s", dst, got, want)
	}
	return nil
}

func sameFile(a, b string) (bool, error) {
	fa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(fa, fb), nil
}
