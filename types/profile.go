package types

import "time"

// DefaultProfileID is the reserved ID of the profile discovered by probing
// the installation layout. It is never generated for user-added profiles.
const DefaultProfileID = "default"

// HardwareProfile pairs an alternate BIOS image with an alternate hypervisor
// executable. Records are immutable once created; edits replace the whole
// collection.
type HardwareProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// BIOSPath and ExecutablePath are validated to exist only at creation time.
	BIOSPath       string    `json:"bios_path"`
	ExecutablePath string    `json:"vmx_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsDefault reports whether p is the probed installation default.
func (p HardwareProfile) IsDefault() bool { return p.ID == DefaultProfileID }
