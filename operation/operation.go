// Package operation runs a VM lifecycle verb, substituting the hypervisor
// executable of a hardware profile around the call when one is requested.
package operation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/config"
	"github.com/cocoonstack/vmswap/installation"
	"github.com/cocoonstack/vmswap/lock"
	"github.com/cocoonstack/vmswap/lock/flock"
	"github.com/cocoonstack/vmswap/swap"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/vmrun"
)

var (
	// ErrNoInstallation is returned when settings carry no installation path.
	ErrNoInstallation = errors.New("installation path is not configured")
	// ErrProfileNotFound is returned in strict mode for an unknown profile ID.
	ErrProfileNotFound = errors.New("hardware profile not found")
)

// Store is the part of the Config Store the orchestrator reads.
type Store interface {
	LoadSettings(context.Context) (types.Settings, error)
	LoadProfiles(context.Context) ([]types.HardwareProfile, error)
}

// Substituter swaps and restores an installation's executable.
type Substituter interface {
	Swap(ctx context.Context, layout installation.Layout, customExecutable string) error
	Restore(ctx context.Context, layout installation.Layout) error
}

// Result is the outcome of Perform. Each step keeps its own error so that,
// for example, a successful VM operation followed by a failed restore can be
// told apart from a failed VM operation.
type Result struct {
	Verb      vmrun.Verb `json:"verb"`
	VMXPath   string     `json:"vmx_path"`
	ProfileID string     `json:"profile_id,omitempty"`
	// ProfileMissing is set when ProfileID was not found and the operation
	// ran without substitution.
	ProfileMissing bool `json:"profile_missing,omitempty"`
	// Swapped is set once a swap was attempted.
	Swapped bool `json:"swapped,omitempty"`
	// Invoked is set once the control tool was called.
	Invoked bool `json:"invoked,omitempty"`

	SwapErr    error `json:"-"`
	InvokeErr  error `json:"-"`
	RestoreErr error `json:"-"`
}

// Err returns the first step error, in swap, invoke, restore order.
func (r *Result) Err() error {
	for _, err := range []error{r.SwapErr, r.InvokeErr, r.RestoreErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Orchestrator composes the Config Store, the Substitution Engine and the
// VM control port.
type Orchestrator struct {
	conf   *config.Config
	store  Store
	engine Substituter
	ctl    vmrun.Controller

	mu      sync.Mutex
	lockers map[string]lock.Locker
}

// New creates an Orchestrator.
func New(conf *config.Config, store Store, engine Substituter, ctl vmrun.Controller) *Orchestrator {
	return &Orchestrator{
		conf:    conf,
		store:   store,
		engine:  engine,
		ctl:     ctl,
		lockers: make(map[string]lock.Locker),
	}
}

// Perform runs verb against vmxPath. When profileID is non-empty the
// profile's executable is swapped in for the call and the original is
// restored afterwards, whether or not the call succeeded.
//
// The returned Result is never nil. The returned error is the first failure;
// the Result holds each step's error separately.
func (o *Orchestrator) Perform(ctx context.Context, verb, vmxPath, profileID string) (*Result, error) {
	logger := log.WithFunc("operation.Perform")
	res := &Result{Verb: vmrun.Verb(verb), VMXPath: vmxPath, ProfileID: profileID}

	v, err := vmrun.ParseVerb(verb)
	if err != nil {
		return res, err
	}

	settings, err := o.store.LoadSettings(ctx)
	if err != nil {
		return res, err
	}
	if !settings.HasInstallation() {
		return res, ErrNoInstallation
	}
	layout := installation.New(settings.InstallationPath)

	var profile *types.HardwareProfile
	if profileID != "" {
		if profile, err = o.lookupProfile(ctx, profileID); err != nil {
			return res, err
		}
		if profile == nil {
			if o.conf.StrictProfile {
				return res, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
			}
			res.ProfileMissing = true
			logger.Warnf(ctx, "profile %s not found, running %s without substitution", profileID, v)
		}
	}

	// The installed executable is shared by every operation on this
	// installation, so the whole swap-invoke-restore sequence is exclusive.
	if err := lock.WithLock(ctx, o.locker(layout.Root), func() error {
		o.run(ctx, res, v, layout, profile)
		return nil
	}); err != nil {
		return res, err
	}

	if err := res.Err(); err != nil {
		return res, err
	}
	logger.Infof(ctx, "%s %s: done", v, vmxPath)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, res *Result, verb vmrun.Verb, layout installation.Layout, profile *types.HardwareProfile) {
	logger := log.WithFunc("operation.run")
	if profile != nil {
		// Restore even if the call panics or ctx is cancelled: leaving the
		// installation swapped breaks every later VM run.
		defer func() {
			if !res.Swapped {
				return
			}
			if err := o.engine.Restore(context.WithoutCancel(ctx), layout); err != nil {
				logger.Errorf(ctx, err, "restore %s", layout.Root)
				res.RestoreErr = err
			}
		}()
		res.Swapped = true
		if err := o.engine.Swap(ctx, layout, profile.ExecutablePath); err != nil {
			res.SwapErr = err
			var verr *swap.ValidationError
			if errors.As(err, &verr) {
				// Preconditions failed before anything on disk changed.
				res.Swapped = false
			}
			return
		}
		logger.Infof(ctx, "profile %s (%s) engaged for %s", profile.ID, profile.Name, res.VMXPath)
	}

	res.Invoked = true
	if err := o.ctl.Invoke(ctx, verb, res.VMXPath); err != nil {
		logger.Warnf(ctx, "%s %s: %v", verb, res.VMXPath, err)
		res.InvokeErr = err
	}
}

// lookupProfile returns the profile with id, or nil if there is none.
func (o *Orchestrator) lookupProfile(ctx context.Context, id string) (*types.HardwareProfile, error) {
	profiles, err := o.store.LoadProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].ID == id {
			p := profiles[i]
			return &p, nil
		}
	}
	return nil, nil
}

// locker returns the shared substitution lock for the installation at root.
func (o *Orchestrator) locker(root string) lock.Locker {
	o.mu.Lock()
	defer o.mu.Unlock()
	path := o.conf.SubstitutionLock(root)
	l, ok := o.lockers[path]
	if !ok {
		l = flock.New(path)
		o.lockers[path] = l
	}
	return l
}

// Recover restores the installed executable from its backup under the
// installation lock. Used to repair an installation left swapped by a
// process that died mid-operation.
func (o *Orchestrator) Recover(ctx context.Context) error {
	layout, err := o.Layout(ctx)
	if err != nil {
		return err
	}
	return lock.WithLock(ctx, o.locker(layout.Root), func() error {
		return o.engine.Restore(ctx, layout)
	})
}

// Layout returns the layout of the configured installation.
func (o *Orchestrator) Layout(ctx context.Context) (installation.Layout, error) {
	settings, err := o.store.LoadSettings(ctx)
	if err != nil {
		return installation.Layout{}, err
	}
	if !settings.HasInstallation() {
		return installation.Layout{}, ErrNoInstallation
	}
	return installation.New(settings.InstallationPath), nil
}
