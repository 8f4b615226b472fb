// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/drizzle/internal/transcript"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript [transcript.db]",
	Short: "Inspect recorded generation attempts",
	Long: `Transcript reads a database recorded with run --transcript and prints
the generation attempts it holds, newest first. Filter by run or stub name,
or export the matching rows as YAML with --yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscript,
}

func init() {
	transcriptCmd.Flags().Int64("run", 0, "restrict to one run id")
	transcriptCmd.Flags().String("stub", "", "restrict to one stub name")
	transcriptCmd.Flags().Int("limit", 0, "maximum rows to show (default 100)")
	transcriptCmd.Flags().Bool("yaml", false, "emit full records as YAML instead of a table")

	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	store, err := transcript.Inspect(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	runID, _ := cmd.Flags().GetInt64("run")
	stub, _ := cmd.Flags().GetString("stub")
	limit, _ := cmd.Flags().GetInt("limit")
	q := transcript.Query{RunID: runID, Stub: stub, Limit: limit}

	out := cmd.OutOrStdout()
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return store.ExportYAML(cmd.Context(), out, q)
	}

	entries, err := store.Attempts(cmd.Context(), q)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No attempts recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-4s  %-20s  %-20s  %-7s  %-8s  %-10s  %s\n",
		"Run", "Script", "Stub", "Attempt", "Accepted", "Duration", "Fault")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, e := range entries {
		fault := e.Fault
		if len(fault) > 40 {
			fault = fault[:40] + "..."
		}
		fmt.Fprintf(out, "%-4d  %-20s  %-20s  %-7d  %-8t  %-8dms  %s\n",
			e.RunID, e.Script, e.Stub, e.Attempt, e.Accepted, e.DurationMS, fault)
	}
	return nil
}
