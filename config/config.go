package config

import (
	"os"
	"path/filepath"

	coretypes "github.com/projecteru2/core/types"
)

// appDirName matches the directory the desktop manager has always used, so
// existing documents are picked up unchanged.
const appDirName = "vmware-manager"

// Config holds global vmswap configuration.
type Config struct {
	// RootDir is the directory holding the persisted documents and lock files.
	// Env: VMSWAP_ROOT_DIR. Default: {UserConfigDir}/vmware-manager.
	RootDir string `json:"root_dir" mapstructure:"root_dir"`
	// VMRunBinary is the path or name of the external VM control tool.
	// Env: VMSWAP_VMRUN_BINARY. Default: "vmrun".
	VMRunBinary string `json:"vmrun_binary" mapstructure:"vmrun_binary"`
	// StrictProfile makes an operation fail when the requested profile ID is
	// not in the profile collection. When false the operation proceeds
	// without substitution and the miss is reported on the result.
	StrictProfile bool `json:"strict_profile" mapstructure:"strict_profile"`
	// ReleaseWaitSeconds is how long a swap or restore waits for running
	// processes to release the installed executable before copying over it.
	// Zero checks once and proceeds.
	ReleaseWaitSeconds int `json:"release_wait_seconds" mapstructure:"release_wait_seconds"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:     defaultRootDir(),
		VMRunBinary: "vmrun",
		Log: coretypes.ServerLogConfig{
			Level: "info",
		},
	}
}

func defaultRootDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(dir, appDirName)
}
