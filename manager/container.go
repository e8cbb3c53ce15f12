package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/operation"
	"github.com/cocoonstack/vmswap/scan"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/utils"
)

func containerID(c types.Container) string { return c.ID }

// ListContainers returns every stored container.
func (m *Manager) ListContainers(ctx context.Context) ([]types.Container, error) {
	return m.store.LoadContainers(ctx)
}

// SaveContainers replaces the stored container collection.
func (m *Manager) SaveContainers(ctx context.Context, containers []types.Container) error {
	return m.store.SaveContainers(ctx, containers)
}

// NewContainer builds a container for vmxPath with a fresh ID. An empty name
// defaults to the definition's file stem. Nothing is persisted.
func NewContainer(vmxPath, name, profileID string) (*types.Container, error) {
	if !utils.FileExists(vmxPath) {
		return nil, fmt.Errorf("%w: VM definition does not exist: %s", ErrInvalid, vmxPath)
	}
	if name == "" {
		name = scan.Load(vmxPath).Name
	}
	return &types.Container{
		ID:                utils.NewID(),
		Name:              name,
		VMXPath:           vmxPath,
		CreatedAt:         time.Now(),
		HardwareProfileID: profileID,
	}, nil
}

// AddContainer creates a container and appends it to the stored collection.
func (m *Manager) AddContainer(ctx context.Context, vmxPath, name, profileID string) (*types.Container, error) {
	c, err := NewContainer(vmxPath, name, profileID)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateContainers(ctx, func(containers []types.Container) ([]types.Container, error) {
		return append(containers, *c), nil
	}); err != nil {
		return nil, err
	}
	log.WithFunc("manager.AddContainer").Infof(ctx, "added container %s (%s)", c.ID, c.VMXPath)
	return c, nil
}

// DeleteContainer checks that id exists. Like DeleteProfile it removes
// nothing; callers save the collection without the container.
func (m *Manager) DeleteContainer(ctx context.Context, id string) error {
	if _, err := m.container(ctx, id); err != nil {
		return err
	}
	log.WithFunc("manager.DeleteContainer").Infof(ctx, "deleting container %s", id)
	return nil
}

// RemoveContainers drops the containers with ids in one locked
// read-modify-write. Every id must exist; otherwise nothing is removed.
func (m *Manager) RemoveContainers(ctx context.Context, ids ...string) error {
	return m.store.UpdateContainers(ctx, func(containers []types.Container) ([]types.Container, error) {
		for _, id := range ids {
			var ok bool
			if containers, ok = utils.RemoveByKey(containers, id, containerID); !ok {
				return nil, fmt.Errorf("container %s: %w", id, ErrNotFound)
			}
		}
		return containers, nil
	})
}

// ScanContainers scans roots for VM definitions and stores a container for
// each definition not already registered. Returns the new containers.
func (m *Manager) ScanContainers(ctx context.Context, roots ...string) ([]types.Container, error) {
	defs, err := scan.All(ctx, roots...)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	var added []types.Container
	err = m.store.UpdateContainers(ctx, func(containers []types.Container) ([]types.Container, error) {
		added = newContainers(containers, defs)
		return append(containers, added...), nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// WatchContainers registers a container for every VM definition created
// under root until ctx is cancelled. onAdd is called after each one is stored.
func (m *Manager) WatchContainers(ctx context.Context, root string, onAdd func(types.Container)) error {
	logger := log.WithFunc("manager.WatchContainers")
	return scan.Watch(ctx, root, func(def types.VMDefinition) {
		var added []types.Container
		if err := m.store.UpdateContainers(ctx, func(containers []types.Container) ([]types.Container, error) {
			added = newContainers(containers, []types.VMDefinition{def})
			return append(containers, added...), nil
		}); err != nil {
			logger.Warnf(ctx, "register %s: %v", def.Path, err)
			return
		}
		for _, c := range added {
			onAdd(c)
		}
	})
}

// SetContainerProfile points container id at profileID. An empty profileID
// clears the association.
func (m *Manager) SetContainerProfile(ctx context.Context, id, profileID string) (*types.Container, error) {
	var updated *types.Container
	err := m.store.UpdateContainers(ctx, func(containers []types.Container) ([]types.Container, error) {
		for i := range containers {
			if containers[i].ID == id {
				containers[i].HardwareProfileID = profileID
				c := containers[i]
				updated = &c
				return containers, nil
			}
		}
		return nil, fmt.Errorf("container %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RunContainer performs verb on the container's VM definition with the
// container's profile. A dangling profile reference follows the configured
// profile-missing policy.
func (m *Manager) RunContainer(ctx context.Context, verb, id string) (*operation.Result, error) {
	c, err := m.container(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.ops.Perform(ctx, verb, c.VMXPath, c.HardwareProfileID)
}

func (m *Manager) container(ctx context.Context, id string) (*types.Container, error) {
	containers, err := m.store.LoadContainers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range containers {
		if containers[i].ID == id {
			c := containers[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("container %s: %w", id, ErrNotFound)
}

// newContainers returns a container for each definition whose path is not
// already registered.
func newContainers(existing []types.Container, defs []types.VMDefinition) []types.Container {
	known := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		known[c.VMXPath] = struct{}{}
	}
	var out []types.Container
	now := time.Now()
	for _, def := range defs {
		if _, ok := known[def.Path]; ok {
			continue
		}
		known[def.Path] = struct{}{}
		out = append(out, types.Container{
			ID:        utils.NewID(),
			Name:      def.Name,
			VMXPath:   def.Path,
			CreatedAt: now,
		})
	}
	return out
}
