package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/utils"
)

// Watch calls fn for each VM definition created under root (recursively)
// until ctx is cancelled. Directories created after Watch starts are watched
// too, and definitions already inside them are reported. Each path is
// reported at most once. Returns nil when ctx is cancelled.
func Watch(ctx context.Context, root string, fn func(types.VMDefinition)) error {
	logger := log.WithFunc("scan.Watch")
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	seen := &dedup{seen: map[string]struct{}{}}
	if err := addTree(w, root, nil); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf(ctx, "watch %s: %v", root, err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if utils.DirExists(ev.Name) {
				if err := addTree(w, ev.Name, func(path string) {
					if seen.first(path) {
						fn(Load(path))
					}
				}); err != nil {
					logger.Warnf(ctx, "watch %s: %v", ev.Name, err)
				}
				continue
			}
			if IsDefinition(ev.Name) && seen.first(ev.Name) {
				fn(Load(ev.Name))
			}
		}
	}
}

// addTree adds root and its subdirectories to w, calling found for each
// definition already present when found is non-nil.
func addTree(w *fsnotify.Watcher, root string, found func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if found != nil && IsDefinition(path) {
			found(path)
		}
		return nil
	})
}
