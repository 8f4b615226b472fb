// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AIConfig holds shared settings for the generative backend.
type AIConfig struct {
	// Model is the model identifier (e.g. "gemini-3-flash-preview" or a
	// "claude-*" model). The prefix selects the backend.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the backend API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of additional generation attempts after the
	// first one fails validation. The total request budget per stub is
	// MaxRetries+1 (default 2, i.e. 3 attempts).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Temperature is the sampling temperature (default 0.2). Low values
	// are requested for determinism but not relied on; per-run consistency
	// comes from the synthesis cache.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens caps the generated output length (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// Validate checks that the configuration can reach a backend. A missing key
// is a ConfigurationFault: it must surface before any stub runs.
func (c AIConfig) Validate() error {
	if c.APIKey == "" {
		return &ConfigurationFault{
			Reason: "no API key found: set GEMINI_API_KEY or ANTHROPIC_API_KEY, " +
				"add a key file under .secrets/, or pass --api-key",
		}
	}
	return nil
}

// SandboxConfig holds settings for the restricted namespace that synthesized
// code executes in.
type SandboxConfig struct {
	// AllowNetwork additionally exposes the network binding group
	// (net/http, net/url) inside the sandbox.
	AllowNetwork bool `json:"allow_network" yaml:"allow_network"`

	// ExtraPackages names further stdlib import paths to expose. Unknown
	// paths are skipped silently.
	ExtraPackages []string `json:"extra_packages,omitempty" yaml:"extra_packages,omitempty"`
}

// TranscriptConfig holds settings for the synthesis transcript store.
type TranscriptConfig struct {
	// Path is the SQLite database file for attempt records. Empty disables
	// recording.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// RunConfig groups all settings for one engine run.
type RunConfig struct {
	AI         AIConfig         `json:"ai" yaml:"ai"`
	Sandbox    SandboxConfig    `json:"sandbox" yaml:"sandbox"`
	Transcript TranscriptConfig `json:"transcript" yaml:"transcript"`

	// Verbose echoes prompts, raw responses, and faults to stderr. It never
	// changes control flow.
	Verbose bool `json:"verbose" yaml:"verbose"`
}
