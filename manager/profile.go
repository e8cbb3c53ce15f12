package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/installation"
	"github.com/cocoonstack/vmswap/operation"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/utils"
)

func profileID(p types.HardwareProfile) string { return p.ID }

// ListProfiles returns every stored hardware profile.
func (m *Manager) ListProfiles(ctx context.Context) ([]types.HardwareProfile, error) {
	return m.store.LoadProfiles(ctx)
}

// SaveProfiles replaces the stored profile collection. An empty collection
// is ignored by the store.
func (m *Manager) SaveProfiles(ctx context.Context, profiles []types.HardwareProfile) error {
	return m.store.SaveProfiles(ctx, profiles)
}

// NewProfile validates the BIOS image and executable and builds a profile
// with a fresh ID. It does not persist anything.
func NewProfile(name, biosPath, executablePath string) (*types.HardwareProfile, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: profile name is empty", ErrInvalid)
	}
	if !utils.FileExists(biosPath) {
		return nil, fmt.Errorf("%w: BIOS file does not exist: %s", ErrInvalid, biosPath)
	}
	if !utils.FileExists(executablePath) {
		return nil, fmt.Errorf("%w: executable does not exist: %s", ErrInvalid, executablePath)
	}
	return &types.HardwareProfile{
		ID:             utils.NewID(),
		Name:           name,
		BIOSPath:       biosPath,
		ExecutablePath: executablePath,
		CreatedAt:      time.Now(),
	}, nil
}

// AddProfile creates a profile and appends it to the stored collection.
func (m *Manager) AddProfile(ctx context.Context, name, biosPath, executablePath string) (*types.HardwareProfile, error) {
	p, err := NewProfile(name, biosPath, executablePath)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateProfiles(ctx, func(profiles []types.HardwareProfile) ([]types.HardwareProfile, error) {
		return append(profiles, *p), nil
	}); err != nil {
		return nil, err
	}
	log.WithFunc("manager.AddProfile").Infof(ctx, "added profile %s (%s)", p.ID, p.Name)
	return p, nil
}

// DeleteProfile checks that id exists. It deliberately removes nothing:
// callers remove a profile by saving the full collection without it, which
// keeps every write a whole-collection replacement.
func (m *Manager) DeleteProfile(ctx context.Context, id string) error {
	profiles, err := m.store.LoadProfiles(ctx)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p.ID == id {
			log.WithFunc("manager.DeleteProfile").Infof(ctx, "deleting profile %s", id)
			return nil
		}
	}
	return fmt.Errorf("profile %s: %w", id, ErrNotFound)
}

// RemoveProfiles drops the profiles with ids in one locked read-modify-write.
// Every id must exist. If removing them would empty the collection nothing
// is removed and removed is false.
func (m *Manager) RemoveProfiles(ctx context.Context, ids ...string) (removed bool, err error) {
	logger := log.WithFunc("manager.RemoveProfiles")
	err = m.store.UpdateProfiles(ctx, func(profiles []types.HardwareProfile) ([]types.HardwareProfile, error) {
		out := profiles
		for _, id := range ids {
			var ok bool
			if out, ok = utils.RemoveByKey(out, id, profileID); !ok {
				return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
			}
		}
		if len(out) == 0 {
			logger.Warnf(ctx, "removing %v would empty the profile collection, nothing removed", ids)
			return profiles, nil
		}
		removed = true
		return out, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ScanDefaultProfile probes the configured installation for the stock BIOS
// image and executable and merges the resulting default profile into the
// stored collection.
func (m *Manager) ScanDefaultProfile(ctx context.Context) (*types.HardwareProfile, error) {
	settings, err := m.store.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.HasInstallation() {
		return nil, fmt.Errorf("scan default profile: %w", operation.ErrNoInstallation)
	}
	p := installation.DefaultProfile(settings.InstallationPath)
	if p == nil {
		return nil, fmt.Errorf("%w: no stock BIOS image and executable under %s", installation.ErrNotInstalled, settings.InstallationPath)
	}
	if err := m.store.UpdateProfiles(ctx, func(profiles []types.HardwareProfile) ([]types.HardwareProfile, error) {
		return utils.MergeByKey(profiles, []types.HardwareProfile{*p}, profileID), nil
	}); err != nil {
		return nil, err
	}
	return p, nil
}
