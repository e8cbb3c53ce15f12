// Package store persists the three vmswap collections: hardware profiles,
// containers, and settings. Each collection is one JSON document that is
// always read and written whole.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/config"
	"github.com/cocoonstack/vmswap/lock/flock"
	storejson "github.com/cocoonstack/vmswap/storage/json"
	"github.com/cocoonstack/vmswap/types"
)

// errSkipSave aborts an Update without writing.
var errSkipSave = errors.New("skip save")

// Store is the Config Store. It is the sole writer of the persisted documents.
type Store struct {
	profiles   *storejson.Store[[]types.HardwareProfile]
	containers *storejson.Store[[]types.Container]
	settings   *storejson.Store[types.Settings]
}

// New creates a Store rooted at conf.RootDir.
func New(conf *config.Config) (*Store, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if conf.RootDir == "" {
		return nil, fmt.Errorf("root dir is empty")
	}
	return &Store{
		profiles: storejson.New(conf.ProfilesFile(), flock.New(conf.ProfilesLock()),
			storejson.TolerateCorrupt[[]types.HardwareProfile](reportCorrupt)),
		containers: storejson.New(conf.ContainersFile(), flock.New(conf.ContainersLock()),
			storejson.TolerateCorrupt[[]types.Container](reportCorrupt)),
		settings: storejson.New(conf.SettingsFile(), flock.New(conf.SettingsLock()),
			storejson.TolerateCorrupt[types.Settings](reportCorrupt)),
	}, nil
}

func reportCorrupt(path string, err error) {
	log.WithFunc("store.load").Warnf(context.Background(), "treating %s as empty: %v", path, err)
}

// LoadProfiles returns every stored hardware profile. A missing, empty or
// undecodable document yields an empty slice.
func (s *Store) LoadProfiles(ctx context.Context) ([]types.HardwareProfile, error) {
	profiles, err := s.profiles.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return nonNil(profiles), nil
}

// LoadProfilesStrict is LoadProfiles except that an undecodable document is
// an error wrapping storage.ErrCorrupt instead of an empty collection. Use it
// before acting on the absence of a profile.
func (s *Store) LoadProfilesStrict(ctx context.Context) ([]types.HardwareProfile, error) {
	profiles, err := s.profiles.LoadStrict(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return nonNil(profiles), nil
}

// SaveProfiles replaces the stored profile collection.
// An empty collection is ignored and the existing document is kept.
func (s *Store) SaveProfiles(ctx context.Context, profiles []types.HardwareProfile) error {
	logger := log.WithFunc("store.SaveProfiles")
	if len(profiles) == 0 {
		logger.Warnf(ctx, "refusing to save empty profile collection, keeping %s", s.profiles.Path())
		return nil
	}
	if err := s.profiles.Save(ctx, profiles); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	logger.Debugf(ctx, "saved %d profiles to %s", len(profiles), s.profiles.Path())
	return nil
}

// UpdateProfiles loads the profile collection, passes it to fn and saves
// what fn returns, all under the collection lock. The empty-collection
// guard of SaveProfiles applies to the result.
func (s *Store) UpdateProfiles(ctx context.Context, fn func([]types.HardwareProfile) ([]types.HardwareProfile, error)) error {
	err := s.profiles.Update(ctx, func(profiles *[]types.HardwareProfile) error {
		next, err := fn(nonNil(*profiles))
		if err != nil {
			return err
		}
		if len(next) == 0 {
			log.WithFunc("store.UpdateProfiles").Warnf(ctx, "refusing to save empty profile collection, keeping %s", s.profiles.Path())
			return errSkipSave
		}
		*profiles = next
		return nil
	})
	if errors.Is(err, errSkipSave) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("update profiles: %w", err)
	}
	return nil
}

// LoadContainers returns every stored container.
func (s *Store) LoadContainers(ctx context.Context) ([]types.Container, error) {
	containers, err := s.containers.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load containers: %w", err)
	}
	return nonNil(containers), nil
}

// SaveContainers replaces the stored container collection, including with
// an empty one.
func (s *Store) SaveContainers(ctx context.Context, containers []types.Container) error {
	if err := s.containers.Save(ctx, nonNil(containers)); err != nil {
		return fmt.Errorf("save containers: %w", err)
	}
	return nil
}

// UpdateContainers is the container counterpart of UpdateProfiles, without
// the empty-collection guard.
func (s *Store) UpdateContainers(ctx context.Context, fn func([]types.Container) ([]types.Container, error)) error {
	err := s.containers.Update(ctx, func(containers *[]types.Container) error {
		next, err := fn(nonNil(*containers))
		if err != nil {
			return err
		}
		*containers = nonNil(next)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update containers: %w", err)
	}
	return nil
}

// LoadSettings returns the settings document, or the zero Settings when
// none has been saved.
func (s *Store) LoadSettings(ctx context.Context) (types.Settings, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return types.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings replaces the settings document.
func (s *Store) SaveSettings(ctx context.Context, settings types.Settings) error {
	if err := s.settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
