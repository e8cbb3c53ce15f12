package types

// Settings is the singleton application settings document.
// The zero value is the default document.
type Settings struct {
	InstallationPath       string `json:"installation_path,omitempty"`
	OriginalBIOSPath       string `json:"original_bios_path,omitempty"`
	OriginalExecutablePath string `json:"original_executable_path,omitempty"`
}

// HasInstallation reports whether an installation root has been configured.
func (s Settings) HasInstallation() bool { return s.InstallationPath != "" }
