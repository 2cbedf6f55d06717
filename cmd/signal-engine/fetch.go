// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signal-engine/internal/signals"
	"github.com/pdiddy/signal-engine/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Fetch normalized signals from one source without storing them",
	Long: `Fetch queries a single source (tender_awards or job_postings) for events in
the last --days days and prints the normalized signals. Nothing is stored.
A source error is printed as a warning alongside any signals that were
retrieved before it.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	orch := newOrchestrator(cfg, nil, nil)
	days, _ := cmd.Flags().GetInt("days")
	keywords, _ := cmd.Flags().GetString("keywords")
	location, _ := cmd.Flags().GetString("location")
	industry, _ := cmd.Flags().GetString("industry")

	filters := types.SearchProfile{
		Industry: industry,
		Location: location,
		Keywords: strings.Split(keywords, ","),
	}.Filters()

	res, err := orch.FetchSource(context.Background(), types.SourceType(args[0]), days, filters)
	if err != nil {
		return err
	}
	sigs := signals.NormalizeAll(res.Signals)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		out := struct {
			Signals []types.Signal `json:"signals"`
			Count   int            `json:"count"`
			Error   *string        `json:"error"`
		}{Signals: sigs, Count: len(sigs)}
		if res.Failed() {
			out.Error = &res.Err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if res.Failed() {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", args[0], res.Err)
	}
	if len(sigs) == 0 {
		fmt.Println("No signals found.")
		return nil
	}
	printSignals(sigs)
	return nil
}

func printSignals(sigs []types.Signal) {
	fmt.Fprintf(os.Stdout, "%-10s  %-30s  %-50s  %s\n", "Date", "Company", "Title", "URL")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, s := range sigs {
		fmt.Fprintf(os.Stdout, "%-10s  %-30s  %-50s  %s\n",
			s.DetectedAt.Format("2006-01-02"), clip(s.CompanyName, 30), clip(s.SignalTitle, 50), s.SignalURL)
	}
	fmt.Fprintf(os.Stdout, "\n%d signal(s)\n", len(sigs))
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	fetchCmd.Flags().Int("days", 7, "fetch window in days")
	fetchCmd.Flags().String("keywords", "", "keyword filters (comma-separated)")
	fetchCmd.Flags().String("location", "", "location filter (two-letter state code for tender awards)")
	fetchCmd.Flags().String("industry", "", "industry filter (NAICS code for tender awards)")
	fetchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(fetchCmd)
}
