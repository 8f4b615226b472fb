// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/drizzle/internal/detect"
	"github.com/pdiddy/drizzle/internal/runner"
	"github.com/pdiddy/drizzle/pkg/types"
)

var stubsCmd = &cobra.Command{
	Use:   "stubs [script.go]",
	Short: "List the unimplemented functions a run would synthesize",
	Long: `Stubs parses a script and lists every function that run would serve
generatively, without calling any model. Use it to preview what a script
asks for before spending API requests on it.`,
	Args: cobra.ExactArgs(1),
	RunE: runStubs,
}

func init() {
	stubsCmd.Flags().String("format", "text", "output format: text, json, or yaml")

	rootCmd.AddCommand(stubsCmd)
}

func runStubs(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	detected, err := detect.Detect(string(source))
	if err != nil {
		return err
	}
	ns, err := runner.BuildNamespace(detected)
	if err != nil {
		return err
	}

	stubs := make([]types.StubDescriptor, 0, len(ns.Order))
	for _, name := range ns.Order {
		stubs = append(stubs, ns.Stubs[name])
	}

	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stubs)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(stubs)
	case "text":
		if len(stubs) == 0 {
			fmt.Fprintln(out, "No unimplemented functions found.")
			return nil
		}
		fmt.Fprintf(out, "%-5s  %-40s  %s\n", "Line", "Signature", "Doc")
		fmt.Fprintln(out, strings.Repeat("-", 80))
		for _, d := range stubs {
			fmt.Fprintf(out, "%-5d  %-40s  %s\n", d.Line, d.Signature(), d.DocSummary())
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q: use text, json, or yaml", format)
	}
}
