package manager

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/gc"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/utils"
)

// GC drops containers whose VM definition file is gone and clears profile
// references that no longer resolve. With dryRun nothing is written.
// An undecodable profile document aborts GC with storage.ErrCorrupt and
// leaves every reference in place.
func (m *Manager) GC(ctx context.Context, dryRun bool) (*gc.Report, error) {
	logger := log.WithFunc("manager.GC")
	profiles, err := m.store.LoadProfilesStrict(ctx)
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}
	known := gc.Collect(profiles, profileID)

	if dryRun {
		containers, err := m.store.LoadContainers(ctx)
		if err != nil {
			return nil, err
		}
		return gc.Scan(containers, known, utils.FileExists), nil
	}

	var report *gc.Report
	if err := m.store.UpdateContainers(ctx, func(containers []types.Container) ([]types.Container, error) {
		report = gc.Scan(containers, known, utils.FileExists)
		return gc.Apply(containers, report), nil
	}); err != nil {
		return nil, err
	}
	if !report.Empty() {
		logger.Infof(ctx, "removed %d container(s), cleared %d dangling profile reference(s)",
			len(report.MissingDefinitions), len(report.DanglingProfiles))
	}
	return report, nil
}
