// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConfigurationFault reports missing credentials or an unusable backend
// selection. It is fatal before any stub runs.
type ConfigurationFault struct {
	Reason string
}

func (f *ConfigurationFault) Error() string {
	return "configuration: " + f.Reason
}
