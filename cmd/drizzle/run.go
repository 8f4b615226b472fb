// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/drizzle/internal/detect"
	"github.com/pdiddy/drizzle/internal/runner"
	"github.com/pdiddy/drizzle/internal/sandbox"
	"github.com/pdiddy/drizzle/internal/secrets"
	"github.com/pdiddy/drizzle/internal/synth"
	"github.com/pdiddy/drizzle/internal/transcript"
	"github.com/pdiddy/drizzle/pkg/types"
)

const (
	defaultModel       = "gemini-3-flash-preview"
	defaultTemperature = 0.2
	defaultMaxTokens   = 1024
	defaultMaxRetries  = 2
)

var runCmd = &cobra.Command{
	Use:   "run [script.go]",
	Short: "Execute a Go script, synthesizing its unimplemented functions",
	Long: `Run executes a Go script. Unimplemented functions (empty body, bare
return, or a not-implemented panic) are stripped and rebound so that the
first call to each one synthesizes an implementation from its signature and
doc comment, validates it, and executes it in a restricted sandbox. Later
calls reuse the accepted implementation for the rest of the run.

A script with no unimplemented functions runs as-is and needs no API key.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("model", "", "model identifier (default "+defaultModel+")")
	runCmd.Flags().String("api-key", "", "generation API key (overrides environment and .secrets/)")
	runCmd.Flags().Float64("temperature", defaultTemperature, "sampling temperature")
	runCmd.Flags().Int("max-tokens", defaultMaxTokens, "generated output token cap")
	runCmd.Flags().Int("max-retries", defaultMaxRetries, "extra generation attempts after a rejected one")
	runCmd.Flags().Bool("verbose", false, "echo prompts, responses, and faults to stderr")
	runCmd.Flags().Bool("allow-network", false, "expose net/http and net/url inside the sandbox")
	runCmd.Flags().StringSlice("packages", nil, "extra stdlib packages to expose inside the sandbox")
	runCmd.Flags().String("transcript", "", "SQLite file to record generation attempts to")

	rootCmd.AddCommand(runCmd)
}

// runConfigFromFlags merges flags over config-file values over built-in
// defaults.
func runConfigFromFlags(cmd *cobra.Command) types.RunConfig {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("model")
	}
	if model == "" {
		model = defaultModel
	}

	temperature, _ := cmd.Flags().GetFloat64("temperature")
	if !cmd.Flags().Changed("temperature") && viper.IsSet("temperature") {
		temperature = viper.GetFloat64("temperature")
	}
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	if !cmd.Flags().Changed("max-tokens") && viper.IsSet("max_tokens") {
		maxTokens = viper.GetInt("max_tokens")
	}
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	if !cmd.Flags().Changed("max-retries") && viper.IsSet("max_retries") {
		maxRetries = viper.GetInt("max_retries")
	}

	flagKey, _ := cmd.Flags().GetString("api-key")
	verbose, _ := cmd.Flags().GetBool("verbose")
	allowNetwork, _ := cmd.Flags().GetBool("allow-network")
	extraPackages, _ := cmd.Flags().GetStringSlice("packages")
	transcriptPath, _ := cmd.Flags().GetString("transcript")
	if transcriptPath == "" {
		transcriptPath = viper.GetString("transcript")
	}

	return types.RunConfig{
		AI: types.AIConfig{
			Model:       model,
			APIKey:      secrets.ResolveAPIKey(flagKey, model, secretsDir),
			MaxRetries:  maxRetries,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		Sandbox: types.SandboxConfig{
			AllowNetwork:  allowNetwork,
			ExtraPackages: extraPackages,
		},
		Transcript: types.TranscriptConfig{Path: transcriptPath},
		Verbose:    verbose,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	cfg := runConfigFromFlags(cmd)

	// The backend is only needed when the script declares stubs, so the
	// dispatch set is built up front and a stub-free script runs without a
	// key.
	stubs, err := detect.Detect(string(source))
	if err != nil {
		return err
	}
	ns, err := runner.BuildNamespace(stubs)
	if err != nil {
		return err
	}

	verbose := io.Discard
	if cfg.Verbose {
		verbose = cmd.ErrOrStderr()
	}

	box := sandbox.New(cfg.Sandbox)

	var engine *synth.Engine
	if len(ns.Order) > 0 {
		if err := cfg.AI.Validate(); err != nil {
			return err
		}
		backend, err := synth.NewBackend(cmd.Context(), cfg.AI)
		if err != nil {
			return err
		}

		var recorder synth.Recorder
		if cfg.Transcript.Path != "" {
			store, err := transcript.Open(cfg.Transcript.Path, filepath.Base(scriptPath))
			if err != nil {
				return err
			}
			defer store.Close()
			recorder = store
		}

		engine = synth.NewEngine(backend, synth.EngineOptions{
			MaxRetries: cfg.AI.MaxRetries,
			Packages:   box.Packages(),
			Verbose:    verbose,
			Recorder:   recorder,
		})
	}

	r := runner.New(engine, box, runner.Options{
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Verbose: verbose,
	})
	return r.Run(cmd.Context(), string(source))
}
