package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoonstack/vmswap/types"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func paths(defs []types.VMDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Path)
	}
	sort.Strings(out)
	return out
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "win10", "win10.vmx")
	b := filepath.Join(root, "deep", "nested", "Linux.VMX")
	touch(t, a, `displayName = "Windows 10"`)
	touch(t, b, "")
	touch(t, filepath.Join(root, "win10", "win10.vmdk"), "disk")
	touch(t, filepath.Join(root, "notes.txt"), "")

	defs, err := Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, paths([]types.VMDefinition{{Path: a}, {Path: b}}), paths(defs))

	for _, d := range defs {
		if d.Path == a {
			assert.Equal(t, "win10", d.Name)
			assert.Equal(t, `displayName = "Windows 10"`, d.Config)
		}
	}
}

func TestCollect_MissingRoot(t *testing.T) {
	_, err := Collect(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.vmx"), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalk_EarlyBreak(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		touch(t, filepath.Join(root, name, name+".vmx"), "")
	}
	n := 0
	for _, err := range Walk(context.Background(), root) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestAll_KeepsRootOrder(t *testing.T) {
	r1, r2 := t.TempDir(), t.TempDir()
	touch(t, filepath.Join(r1, "one.vmx"), "")
	touch(t, filepath.Join(r2, "two.vmx"), "")

	defs, err := All(context.Background(), r1, r2)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "one", defs[0].Name)
	assert.Equal(t, "two", defs[1].Name)

	_, err = All(context.Background(), r1, filepath.Join(r2, "missing"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "my vm.vmx")
	touch(t, p, "memsize = \"4096\"")
	def := Load(p)
	assert.Equal(t, "my vm", def.Name)
	assert.Equal(t, "memsize = \"4096\"", def.Config)

	missing := Load(filepath.Join(dir, "ghost.vmx"))
	assert.Equal(t, "ghost", missing.Name)
	assert.Empty(t, missing.Config)
}

func TestIsDefinition(t *testing.T) {
	assert.True(t, IsDefinition("a.vmx"))
	assert.True(t, IsDefinition(`C:\VMs\A.VMX`))
	assert.False(t, IsDefinition("a.vmxf"))
	assert.False(t, IsDefinition("vmx"))
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.vmx"), "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	found := make(chan types.VMDefinition, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, root, func(d types.VMDefinition) { found <- d })
	}()

	// Give the watcher time to register root before creating files.
	time.Sleep(100 * time.Millisecond)
	touch(t, filepath.Join(root, "new.vmx"), "")
	touch(t, filepath.Join(root, "ignored.txt"), "")

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o750))
	time.Sleep(100 * time.Millisecond)
	touch(t, filepath.Join(sub, "inner.vmx"), "")

	got := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case d := <-found:
			got[d.Path] = true
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.True(t, got[filepath.Join(root, "new.vmx")])
	assert.True(t, got[filepath.Join(sub, "inner.vmx")])
	assert.False(t, got[filepath.Join(root, "existing.vmx")])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
