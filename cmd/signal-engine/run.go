// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signal-engine/internal/discovery"
)

var runCmd = &cobra.Command{
	Use:   "run <profile-id>",
	Short: "Run a search profile and store the net-new signals",
	Long: `Run fetches every source enabled on the profile concurrently, normalizes
and deduplicates the results against the user's stored signals, and records
the net-new signals together with a search run. Sources that fail are listed
on the run; they do not fail the command.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch := newOrchestrator(cfg, st, nil)
	days, _ := cmd.Flags().GetInt("days")
	if days == 0 {
		days = orch.WindowDays()
	}

	res, err := orch.RunWindow(context.Background(), args[0], user, days)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printRunResult(res)
	return nil
}

func printRunResult(res discovery.RunResult) {
	fmt.Printf("Run %s: %s\n", res.Run.ID, res.Run.Status)
	fmt.Printf("New signals: %d\n", res.NewSignals)
	for _, e := range res.Run.Errors {
		fmt.Printf("  warning: %s: %s\n", e.Source, e.Message)
	}
}

func init() {
	runCmd.Flags().String("user", "", "owning user id (required)")
	runCmd.Flags().Int("days", 0, "fetch window in days (default: discovery.window_days)")
	runCmd.Flags().Bool("json", false, "output the run as JSON")

	rootCmd.AddCommand(runCmd)
}
