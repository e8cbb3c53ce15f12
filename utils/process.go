package utils

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessesUsing returns the PIDs of processes whose executable is exePath.
// Processes whose executable cannot be read (permissions, zombies) are skipped.
func ProcessesUsing(ctx context.Context, exePath string) ([]int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	want := normalizePath(exePath)
	var pids []int
	for _, p := range procs {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		if normalizePath(exe) == want {
			pids = append(pids, int(p.Pid))
		}
	}
	return pids, nil
}

// normalizePath cleans p and folds case, since the executables we look for
// live on case-insensitive Windows filesystems.
func normalizePath(p string) string {
	return strings.ToLower(filepath.Clean(p))
}
