// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"github.com/pdiddy/drizzle/pkg/types"
)

// GeminiBackend generates implementations through the official genai
// client. It is a thin wrapper: cleaning, validation, and retries are the
// engine's concern.
type GeminiBackend struct {
	cli *genai.Client
	cfg types.AIConfig
}

// NewGeminiBackend builds a Gemini backend from the AI configuration.
func NewGeminiBackend(ctx context.Context, cfg types.AIConfig) (*GeminiBackend, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiBackend{cli: cli, cfg: cfg}, nil
}

func (g *GeminiBackend) Name() string { return "gemini:" + g.cfg.Model }

// Generate sends one generation request and returns the raw response text.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := g.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := float32(g.cfg.Temperature)

	resp, err := g.cli.Models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
			Temperature:       &temperature,
			MaxOutputTokens:   int32(maxTokens),
		},
	)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini API returned no content")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
