// Package manager is the command surface of vmswap: profile, container and
// settings management plus VM lifecycle operations.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cocoonstack/vmswap/config"
	"github.com/cocoonstack/vmswap/operation"
	"github.com/cocoonstack/vmswap/store"
	"github.com/cocoonstack/vmswap/swap"
	"github.com/cocoonstack/vmswap/vmrun"
)

var (
	// ErrNotFound is returned when an ID is not in its collection.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when an input path does not reference an existing file.
	ErrInvalid = errors.New("invalid input")
)

// Manager wires the Config Store, Substitution Engine, VM control port and
// Operation Orchestrator together.
type Manager struct {
	conf   *config.Config
	store  *store.Store
	engine *swap.Engine
	ctl    vmrun.Controller
	ops    *operation.Orchestrator
}

// New creates a Manager from conf using the vmrun binary it names.
func New(conf *config.Config) (*Manager, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := conf.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	st, err := store.New(conf)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	engine := swap.New(swap.WithReleaseWait(time.Duration(conf.ReleaseWaitSeconds) * time.Second))
	return NewWith(conf, st, engine, vmrun.New(conf.VMRunBinary)), nil
}

// NewWith creates a Manager from explicit collaborators.
func NewWith(conf *config.Config, st *store.Store, engine *swap.Engine, ctl vmrun.Controller) *Manager {
	return &Manager{
		conf:   conf,
		store:  st,
		engine: engine,
		ctl:    ctl,
		ops:    operation.New(conf, st, engine, ctl),
	}
}

// Perform runs a lifecycle verb against vmxPath, engaging profileID if set.
func (m *Manager) Perform(ctx context.Context, verb, vmxPath, profileID string) (*operation.Result, error) {
	return m.ops.Perform(ctx, verb, vmxPath, profileID)
}

// RunningVMs lists the VMs the control tool reports as running.
func (m *Manager) RunningVMs(ctx context.Context) ([]string, error) {
	vms, err := m.ctl.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list running VMs: %w", err)
	}
	return vms, nil
}

// SwapStatus reports the substitution state of the configured installation.
func (m *Manager) SwapStatus(ctx context.Context) (*swap.Status, error) {
	layout, err := m.ops.Layout(ctx)
	if err != nil {
		return nil, err
	}
	return m.engine.Inspect(layout)
}

// Recover restores the configured installation's executable from its backup.
func (m *Manager) Recover(ctx context.Context) error {
	return m.ops.Recover(ctx)
}
