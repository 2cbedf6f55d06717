// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signal-engine/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent search runs",
	Long: `Runs lists a user's search runs newest first, optionally restricted to one
profile. Each run shows its status, the number of new signals it stored, and
the sources that failed.`,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	profileID, _ := cmd.Flags().GetString("profile")
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), store.RunQuery{UserID: user, ProfileID: profileID, Limit: limit})
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-20s  %-36s  %-22s  %5s  %s\n", "Ran at", "Profile", "Status", "New", "Errors")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range runs {
		var failed []string
		for _, e := range r.Errors {
			failed = append(failed, string(e.Source))
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-36s  %-22s  %5d  %s\n",
			r.RanAt.Format("2006-01-02 15:04:05"), r.ProfileID, r.Status, r.NewSignals, strings.Join(failed, ","))
	}
	return nil
}

func init() {
	runsCmd.Flags().String("user", "", "owning user id (required)")
	runsCmd.Flags().String("profile", "", "only runs of this profile")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs (capped at 200)")
	runsCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(runsCmd)
}
