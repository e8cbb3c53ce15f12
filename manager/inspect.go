package manager

import (
	"context"
	"strings"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/scan"
	"github.com/cocoonstack/vmswap/types"
)

// ContainerInfo is a container with its resolved profile and definition.
type ContainerInfo struct {
	types.Container
	Profile        *types.HardwareProfile `json:"profile,omitempty"`
	ProfileMissing bool                   `json:"profile_missing,omitempty"`
	Definition     types.VMDefinition     `json:"definition"`
	Running        bool                   `json:"running"`
}

// InspectContainer resolves container id. Running is best-effort: if the
// control tool cannot list VMs it is reported false.
func (m *Manager) InspectContainer(ctx context.Context, id string) (*ContainerInfo, error) {
	c, err := m.container(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &ContainerInfo{Container: *c, Definition: scan.Load(c.VMXPath)}
	if c.HardwareProfileID != "" {
		profiles, err := m.store.LoadProfiles(ctx)
		if err != nil {
			return nil, err
		}
		for i := range profiles {
			if profiles[i].ID == c.HardwareProfileID {
				info.Profile = &profiles[i]
				break
			}
		}
		info.ProfileMissing = info.Profile == nil
	}
	running, err := m.ctl.List(ctx)
	if err != nil {
		log.WithFunc("manager.InspectContainer").Warnf(ctx, "list running VMs: %v", err)
		return info, nil
	}
	for _, vm := range running {
		if strings.EqualFold(vm, c.VMXPath) {
			info.Running = true
			break
		}
	}
	return info, nil
}
