// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns a stub descriptor into validated implementation
// source via an external generative service, with a bounded
// retry-with-feedback loop and a per-run cache.
// Implements: docs/ARCHITECTURE § Code Synthesis.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/drizzle/pkg/types"
)

// Request is the generation request handed to a backend. The backend treats
// it as opaque text: prompt phrasing, cleaning, validation, and retries all
// live on this side of the boundary.
type Request struct {
	// System is the fixed role text.
	System string

	// Prompt is the per-stub user prompt, including the signature, the doc
	// text, and on retry the prior fault message.
	Prompt string
}

// Backend abstracts the generative service so tests can supply a mock.
// Generate is a synchronous request→raw-text call; timeouts and transport
// policy belong to the implementation.
type Backend interface {
	// Name identifies the backend and model for diagnostics.
	Name() string

	// Generate sends the request and returns the raw response text.
	Generate(ctx context.Context, req Request) (string, error)
}

// NewBackend selects a backend from the model identifier: "claude-*" models
// use the Claude Messages API, "gemini-*" models use the Gemini API. The
// configuration is validated first so a missing key surfaces before any
// stub runs.
func NewBackend(ctx context.Context, cfg types.AIConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(cfg.Model, "claude"):
		return NewClaudeBackend(cfg), nil
	case strings.HasPrefix(cfg.Model, "gemini"):
		return NewGeminiBackend(ctx, cfg)
	default:
		return nil, &types.ConfigurationFault{
			Reason: fmt.Sprintf("unsupported model %q: use a gemini-* or claude-* model", cfg.Model),
		}
	}
}
