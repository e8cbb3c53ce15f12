package types

// VMDefinition is a VM definition file (.vmx) found by a directory scan.
// Scan results are ephemeral and never persisted.
type VMDefinition struct {
	Path string `json:"path"`
	Name string `json:"name"`
	// Config holds the raw file text, empty when the file could not be read.
	Config string `json:"config,omitempty"`
}
