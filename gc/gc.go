// Package gc finds and drops stale container records: containers whose VM
// definition file is gone and profile references that no longer resolve.
//
// Scan only reads; Apply returns a new collection. The caller persists the
// result as a whole-collection save, so a gc run is one write.
package gc

import (
	"slices"

	"github.com/cocoonstack/vmswap/types"
)

// Report lists the container IDs a collection pass found stale.
type Report struct {
	// MissingDefinitions are containers whose .vmx file no longer exists.
	// Apply removes them.
	MissingDefinitions []string `json:"missing_definitions,omitempty"`
	// DanglingProfiles are containers referencing an unknown profile ID.
	// Apply clears the reference and keeps the container.
	DanglingProfiles []string `json:"dangling_profiles,omitempty"`
}

// Empty reports whether there is nothing to collect.
func (r *Report) Empty() bool {
	return len(r.MissingDefinitions) == 0 && len(r.DanglingProfiles) == 0
}

// Scan checks containers against the known profile IDs and the filesystem.
// A container that is both missing and dangling is only reported missing.
func Scan(containers []types.Container, profileIDs map[string]struct{}, exists Exists) *Report {
	r := &Report{}
	for _, c := range containers {
		if !exists(c.VMXPath) {
			r.MissingDefinitions = append(r.MissingDefinitions, c.ID)
			continue
		}
		if c.HardwareProfileID == "" {
			continue
		}
		if _, ok := profileIDs[c.HardwareProfileID]; !ok {
			r.DanglingProfiles = append(r.DanglingProfiles, c.ID)
		}
	}
	return r
}

// Apply returns a copy of containers with r applied.
func Apply(containers []types.Container, r *Report) []types.Container {
	out := make([]types.Container, 0, len(containers))
	for _, c := range containers {
		if slices.Contains(r.MissingDefinitions, c.ID) {
			continue
		}
		if slices.Contains(r.DanglingProfiles, c.ID) {
			c.HardwareProfileID = ""
		}
		out = append(out, c)
	}
	return out
}
