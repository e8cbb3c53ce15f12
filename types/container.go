package types

import "time"

// Container is a saved association between a VM definition and the profile
// to apply when running it.
type Container struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VMXPath   string    `json:"vmx_path"`
	CreatedAt time.Time `json:"created_at"`
	// HardwareProfileID is a non-owning reference; it may dangle after the
	// profile is removed.
	HardwareProfileID string `json:"hardware_profile_id,omitempty"`
}
