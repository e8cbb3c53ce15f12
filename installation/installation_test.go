package installation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoonstack/vmswap/types"
)

func newRoot(t *testing.T, bios, exe bool) Layout {
	t.Helper()
	l := New(t.TempDir())
	require.NoError(t, os.MkdirAll(l.ExecutableDir(), 0o750))
	if bios {
		require.NoError(t, os.WriteFile(l.BIOSPath(), []byte("bios"), 0o600))
	}
	if exe {
		require.NoError(t, os.WriteFile(l.ExecutablePath(), []byte("vmx"), 0o700))
	}
	return l
}

func TestLayoutPaths(t *testing.T) {
	root := filepath.Join("opt", "vmware") + string(filepath.Separator)
	l := New(root)
	assert.Equal(t, filepath.Join("opt", "vmware"), l.Root)
	assert.Equal(t, filepath.Join("opt", "vmware", "BIOS.440.ROM"), l.BIOSPath())
	assert.Equal(t, filepath.Join("opt", "vmware", "x64"), l.ExecutableDir())
	assert.Equal(t, filepath.Join("opt", "vmware", "x64", "vmware-vmx.exe"), l.ExecutablePath())
	assert.Equal(t, filepath.Join("opt", "vmware", "x64", "vmware-vmx.exe.bak"), l.BackupPath())
}

func TestValidate(t *testing.T) {
	ok := newRoot(t, false, true)
	assert.NoError(t, Validate(ok.Root))

	noExe := newRoot(t, true, false)
	for _, root := range []string{"", filepath.Join(t.TempDir(), "missing"), t.TempDir(), noExe.Root} {
		err := Validate(root)
		assert.True(t, errors.Is(err, ErrNotInstalled), "root %q: %v", root, err)
	}
}

func TestDefaultProfile(t *testing.T) {
	l := newRoot(t, true, true)
	p := DefaultProfile(l.Root)
	require.NotNil(t, p)
	assert.Equal(t, types.DefaultProfileID, p.ID)
	assert.True(t, p.IsDefault())
	assert.Equal(t, l.BIOSPath(), p.BIOSPath)
	assert.Equal(t, l.ExecutablePath(), p.ExecutablePath)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestDefaultProfile_PrefersBackup(t *testing.T) {
	l := newRoot(t, true, true)
	require.NoError(t, os.WriteFile(l.BackupPath(), []byte("vendor"), 0o700))
	p := DefaultProfile(l.Root)
	require.NotNil(t, p)
	assert.Equal(t, l.BackupPath(), p.ExecutablePath)
}

func TestDefaultProfile_Missing(t *testing.T) {
	assert.Nil(t, DefaultProfile(newRoot(t, false, true).Root))
	assert.Nil(t, DefaultProfile(newRoot(t, true, false).Root))
}
