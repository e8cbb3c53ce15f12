// Package scan finds VM definition (.vmx) files under directory trees.
package scan

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cocoonstack/vmswap/types"
)

// Ext is the VM definition file extension.
const Ext = ".vmx"

// Walk lazily yields the VM definitions found recursively under root.
// Iteration stops at the first error, which is yielded with a zero entry;
// cancelling ctx stops the walk between entries.
func Walk(ctx context.Context, root string) iter.Seq2[types.VMDefinition, error] {
	return func(yield func(types.VMDefinition, error) bool) {
		stopped := false
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !IsDefinition(path) {
				return nil
			}
			if !yield(Load(path), nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(types.VMDefinition{}, err)
		}
	}
}

// Collect drains Walk into a slice.
func Collect(ctx context.Context, root string) ([]types.VMDefinition, error) {
	var out []types.VMDefinition
	for def, err := range Walk(ctx, root) {
		if err != nil {
			return out, err
		}
		out = append(out, def)
	}
	return out, nil
}

// All scans roots concurrently and returns the combined definitions in
// root order. The first failing root cancels the others.
func All(ctx context.Context, roots ...string) ([]types.VMDefinition, error) {
	results := make([][]types.VMDefinition, len(roots))
	g, ctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		g.Go(func() error {
			defs, err := Collect(ctx, root)
			if err != nil {
				return err
			}
			results[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []types.VMDefinition
	for _, defs := range results {
		out = append(out, defs...)
	}
	return out, nil
}

// IsDefinition reports whether path names a VM definition file.
func IsDefinition(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Ext)
}

// Load builds the VMDefinition for path. The raw config is left empty when
// the file cannot be read.
func Load(path string) types.VMDefinition {
	def := types.VMDefinition{
		Path: path,
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
	if data, err := os.ReadFile(path); err == nil { //nolint:gosec
		def.Config = string(data)
	}
	if def.Name == "" {
		def.Name = "Unknown"
	}
	return def
}

// dedup tracks paths already emitted by Watch.
type dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *dedup) first(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[path]; ok {
		return false
	}
	d.seen[path] = struct{}{}
	return true
}
