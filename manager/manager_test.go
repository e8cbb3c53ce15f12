package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoonstack/vmswap/config"
	"github.com/cocoonstack/vmswap/installation"
	"github.com/cocoonstack/vmswap/operation"
	"github.com/cocoonstack/vmswap/storage"
	"github.com/cocoonstack/vmswap/store"
	"github.com/cocoonstack/vmswap/swap"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/vmrun"
)

type fakeController struct {
	mu      sync.Mutex
	invoked []string
	running []string
}

func (f *fakeController) Invoke(_ context.Context, verb vmrun.Verb, path string) error {
	if _, err := vmrun.Args(verb, path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, string(verb)+" "+path)
	return nil
}

func (f *fakeController) List(context.Context) ([]string, error) { return f.running, nil }

func newManager(t *testing.T) (*Manager, *fakeController) {
	t.Helper()
	conf := &config.Config{RootDir: t.TempDir()}
	require.NoError(t, conf.EnsureDirs())
	st, err := store.New(conf)
	require.NoError(t, err)
	ctl := &fakeController{}
	return NewWith(conf, st, swap.New(), ctl), ctl
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newInstallation creates an installation root with the stock files.
func newInstallation(t *testing.T) installation.Layout {
	t.Helper()
	l := installation.New(t.TempDir())
	writeFile(t, l.BIOSPath(), "bios")
	writeFile(t, l.ExecutablePath(), "vendor")
	return l
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	conf := config.DefaultConfig()
	conf.RootDir = filepath.Join(t.TempDir(), "state")
	m, err := New(conf)
	require.NoError(t, err)
	assert.DirExists(t, conf.RootDir)
	profiles, err := m.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestAddProfile(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	bios := writeFile(t, filepath.Join(dir, "bios.rom"), "b")
	exe := writeFile(t, filepath.Join(dir, "vmx.exe"), "e")

	p, err := m.AddProfile(ctx, "stealth", bios, exe)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.NotEqual(t, types.DefaultProfileID, p.ID)

	p2, err := m.AddProfile(ctx, "other", bios, exe)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, p2.ID)

	profiles, err := m.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, p.ID, profiles[0].ID)
	assert.Equal(t, p2.ID, profiles[1].ID)
}

func TestAddProfile_Invalid(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	bios := writeFile(t, filepath.Join(dir, "bios.rom"), "b")
	exe := writeFile(t, filepath.Join(dir, "vmx.exe"), "e")
	missing := filepath.Join(dir, "missing")

	for _, tc := range [][3]string{
		{"", bios, exe},
		{"x", missing, exe},
		{"x", bios, missing},
	} {
		_, err := m.AddProfile(ctx, tc[0], tc[1], tc[2])
		assert.ErrorIs(t, err, ErrInvalid, "%v", tc)
	}
	profiles, err := m.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestDeleteProfile_ValidatesOnly(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	p, err := m.AddProfile(ctx, "p", writeFile(t, filepath.Join(dir, "b"), "b"), writeFile(t, filepath.Join(dir, "e"), "e"))
	require.NoError(t, err)

	require.NoError(t, m.DeleteProfile(ctx, p.ID))
	assert.ErrorIs(t, m.DeleteProfile(ctx, "ghost"), ErrNotFound)

	profiles, err := m.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1, "delete removes nothing by itself")
}

func TestScanDefaultProfile(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.ScanDefaultProfile(ctx)
	require.ErrorIs(t, err, operation.ErrNoInstallation)

	l := newInstallation(t)
	_, err = m.SetInstallation(ctx, l.Root)
	require.NoError(t, err)

	p, err := m.ScanDefaultProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultProfileID, p.ID)

	// A second scan replaces rather than duplicates the default profile.
	_, err = m.ScanDefaultProfile(ctx)
	require.NoError(t, err)
	profiles, err := m.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, l.ExecutablePath(), profiles[0].ExecutablePath)
}

func TestScanDefaultProfile_NoStockFiles(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	l := installation.New(t.TempDir())
	writeFile(t, l.ExecutablePath(), "vendor")
	_, err := m.SetInstallation(ctx, l.Root)
	require.NoError(t, err)

	_, err = m.ScanDefaultProfile(ctx)
	assert.ErrorIs(t, err, installation.ErrNotInstalled)
}

func TestSetInstallation(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.SetInstallation(ctx, t.TempDir())
	require.ErrorIs(t, err, installation.ErrNotInstalled)
	settings, err := m.LoadSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.HasInstallation())

	l := newInstallation(t)
	settings, err = m.SetInstallation(ctx, l.Root)
	require.NoError(t, err)
	assert.Equal(t, types.Settings{
		InstallationPath:       l.Root,
		OriginalBIOSPath:       l.BIOSPath(),
		OriginalExecutablePath: l.ExecutablePath(),
	}, settings)

	loaded, err := m.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestScanContainers_Dedup(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "a.vmx"), "")
	writeFile(t, filepath.Join(root, "b", "b.vmx"), "")

	added, err := m.ScanContainers(ctx, root)
	require.NoError(t, err)
	assert.Len(t, added, 2)

	writeFile(t, filepath.Join(root, "c", "c.vmx"), "")
	added, err = m.ScanContainers(ctx, root, root)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "c", added[0].Name)

	containers, err := m.ListContainers(ctx)
	require.NoError(t, err)
	assert.Len(t, containers, 3)
}

func TestAddContainer(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	vmx := writeFile(t, filepath.Join(t.TempDir(), "Win 11.vmx"), "")

	c, err := m.AddContainer(ctx, vmx, "", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Win 11", c.Name)
	assert.Equal(t, "p1", c.HardwareProfileID)

	_, err = m.AddContainer(ctx, filepath.Join(t.TempDir(), "gone.vmx"), "", "")
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, m.DeleteContainer(ctx, c.ID))
	assert.ErrorIs(t, m.DeleteContainer(ctx, "ghost"), ErrNotFound)
}

func TestSetContainerProfile(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	vmx := writeFile(t, filepath.Join(t.TempDir(), "a.vmx"), "")
	c, err := m.AddContainer(ctx, vmx, "a", "")
	require.NoError(t, err)

	updated, err := m.SetContainerProfile(ctx, c.ID, "p9")
	require.NoError(t, err)
	assert.Equal(t, "p9", updated.HardwareProfileID)

	containers, err := m.ListContainers(ctx)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "p9", containers[0].HardwareProfileID)

	_, err = m.SetContainerProfile(ctx, "ghost", "p9")
	assert.ErrorIs(t, err, ErrNotFound)
	containers, err = m.ListContainers(ctx)
	require.NoError(t, err)
	assert.Len(t, containers, 1, "failed update must not touch the collection")
}

func TestRunContainer(t *testing.T) {
	m, ctl := newManager(t)
	ctx := context.Background()
	l := newInstallation(t)
	_, err := m.SetInstallation(ctx, l.Root)
	require.NoError(t, err)

	dir := t.TempDir()
	p, err := m.AddProfile(ctx, "custom", writeFile(t, filepath.Join(dir, "b"), "b"), writeFile(t, filepath.Join(dir, "e"), "custom"))
	require.NoError(t, err)
	vmx := writeFile(t, filepath.Join(dir, "vm.vmx"), "")
	c, err := m.AddContainer(ctx, vmx, "", p.ID)
	require.NoError(t, err)

	res, err := m.RunContainer(ctx, "start", c.ID)
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Equal(t, []string{"start " + vmx}, ctl.invoked)

	data, err := os.ReadFile(l.ExecutablePath())
	require.NoError(t, err)
	assert.Equal(t, "vendor", string(data))

	st, err := m.SwapStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, swap.StateBackedUp, st.State)

	_, err = m.RunContainer(ctx, "start", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunContainer_DanglingProfile(t *testing.T) {
	m, ctl := newManager(t)
	ctx := context.Background()
	l := newInstallation(t)
	_, err := m.SetInstallation(ctx, l.Root)
	require.NoError(t, err)
	vmx := writeFile(t, filepath.Join(t.TempDir(), "vm.vmx"), "")
	c, err := m.AddContainer(ctx, vmx, "", "deleted-profile")
	require.NoError(t, err)

	res, err := m.RunContainer(ctx, "stop", c.ID)
	require.NoError(t, err)
	assert.True(t, res.ProfileMissing)
	assert.False(t, res.Swapped)
	assert.Equal(t, []string{"stop " + vmx}, ctl.invoked)
}

func TestWatchContainers(t *testing.T) {
	m, _ := newManager(t)
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	added := make(chan types.Container, 4)
	go func() {
		_ = m.WatchContainers(ctx, root, func(c types.Container) { added <- c })
	}()
	time.Sleep(100 * time.Millisecond)
	vmx := writeFile(t, filepath.Join(root, "fresh.vmx"), "")

	select {
	case c := <-added:
		assert.Equal(t, vmx, c.VMXPath)
	case <-time.After(5 * time.Second):
		t.Fatal("no container registered")
	}
	containers, err := m.ListContainers(context.Background())
	require.NoError(t, err)
	assert.Len(t, containers, 1)
}

func TestRunningVMs(t *testing.T) {
	m, ctl := newManager(t)
	ctl.running = []string{"/vms/a.vmx"}
	vms, err := m.RunningVMs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/vms/a.vmx"}, vms)
}

func TestGC(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	p, err := m.AddProfile(ctx, "p", writeFile(t, filepath.Join(dir, "b"), "b"), writeFile(t, filepath.Join(dir, "e"), "e"))
	require.NoError(t, err)

	keep, err := m.AddContainer(ctx, writeFile(t, filepath.Join(dir, "keep.vmx"), ""), "", p.ID)
	require.NoError(t, err)
	dangling, err := m.AddContainer(ctx, writeFile(t, filepath.Join(dir, "dangling.vmx"), ""), "", "gone")
	require.NoError(t, err)
	gonePath := writeFile(t, filepath.Join(dir, "gone.vmx"), "")
	gone, err := m.AddContainer(ctx, gonePath, "", "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(gonePath))

	report, err := m.GC(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{gone.ID}, report.MissingDefinitions)
	assert.Equal(t, []string{dangling.ID}, report.DanglingProfiles)
	containers, err := m.ListContainers(ctx)
	require.NoError(t, err)
	assert.Len(t, containers, 3, "dry run writes nothing")

	_, err = m.GC(ctx, false)
	require.NoError(t, err)
	containers, err = m.ListContainers(ctx)
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, keep.ID, containers[0].ID)
	assert.Equal(t, p.ID, containers[0].HardwareProfileID)
	assert.Equal(t, dangling.ID, containers[1].ID)
	assert.Empty(t, containers[1].HardwareProfileID)

	report, err = m.GC(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.Empty())
}

func TestInspectContainer(t *testing.T) {
	m, ctl := newManager(t)
	ctx := context.Background()
	vmx := writeFile(t, filepath.Join(t.TempDir(), "vm.vmx"), `displayName = "vm"`)
	c, err := m.AddContainer(ctx, vmx, "", "gone")
	require.NoError(t, err)
	ctl.running = []string{vmx}

	info, err := m.InspectContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, info.ID)
	assert.True(t, info.ProfileMissing)
	assert.Nil(t, info.Profile)
	assert.True(t, info.Running)
	assert.Equal(t, `displayName = "vm"`, info.Definition.Config)

	_, err = m.InspectContainer(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanContainers_KeepsContainersSharingDefinition(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	root := t.TempDir()
	vmx := writeFile(t, filepath.Join(root, "win", "win.vmx"), "")

	a, err := m.AddContainer(ctx, vmx, "win-biosA", "pA")
	require.NoError(t, err)
	b, err := m.AddContainer(ctx, vmx, "win-biosB", "pB")
	require.NoError(t, err)

	added, err := m.ScanContainers(ctx, root)
	require.NoError(t, err)
	assert.Empty(t, added)

	containers, err := m.ListContainers(ctx)
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, a.ID, containers[0].ID)
	assert.Equal(t, "pA", containers[0].HardwareProfileID)
	assert.Equal(t, b.ID, containers[1].ID)
	assert.Equal(t, "pB", containers[1].HardwareProfileID)
}

func TestGC_CorruptProfilesKeepsReferences(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	p, err := m.AddProfile(ctx, "p", writeFile(t, filepath.Join(dir, "b"), "b"), writeFile(t, filepath.Join(dir, "e"), "e"))
	require.NoError(t, err)
	c, err := m.AddContainer(ctx, writeFile(t, filepath.Join(dir, "vm.vmx"), ""), "", p.ID)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(m.conf.ProfilesFile(), []byte(`[{"id":`), 0o600))

	for _, dryRun := range []bool{true, false} {
		_, err = m.GC(ctx, dryRun)
		assert.ErrorIs(t, err, storage.ErrCorrupt, "dryRun=%v", dryRun)
	}
	containers, err := m.ListContainers(ctx)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, c.ID, containers[0].ID)
	assert.Equal(t, p.ID, containers[0].HardwareProfileID)
}

func TestRemoveProfiles(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	bios := writeFile(t, filepath.Join(dir, "b"), "b")
	exe := writeFile(t, filepath.Join(dir, "e"), "e")
	p1, err := m.AddProfile(ctx, "one", bios, exe)
	require.NoError(t, err)
	p2, err := m.AddProfile(ctx, "two", bios, exe)
	require.NoError(t, err)

	_, err = m.RemoveProfiles(ctx, p1.ID, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	profiles, err := m.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 2, "unknown id must not remove anything")

	removed, err := m.RemoveProfiles(ctx, p1.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	profiles, err = m.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, p2.ID, profiles[0].ID)

	removed, err = m.RemoveProfiles(ctx, p2.ID)
	require.NoError(t, err)
	assert.False(t, removed, "the last profile is kept")
	profiles, err = m.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestRemoveContainers(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	a, err := m.AddContainer(ctx, writeFile(t, filepath.Join(dir, "a.vmx"), ""), "", "")
	require.NoError(t, err)
	b, err := m.AddContainer(ctx, writeFile(t, filepath.Join(dir, "b.vmx"), ""), "", "")
	require.NoError(t, err)

	require.ErrorIs(t, m.RemoveContainers(ctx, a.ID, "ghost"), ErrNotFound)
	containers, err := m.ListContainers(ctx)
	require.NoError(t, err)
	assert.Len(t, containers, 2)

	require.NoError(t, m.RemoveContainers(ctx, a.ID, b.ID))
	containers, err = m.ListContainers(ctx)
	require.NoError(t, err)
	assert.Empty(t, containers, "containers may be emptied")
}
