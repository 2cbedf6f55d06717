// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signal-engine/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's signals with their contacts as CSV or JSON",
	Long: `Export writes every signal owned by the user, joined with its contacts.
CSV output has one row per contact (one row for a signal without contacts)
in a fixed column order; JSON output is the indented signal-with-contacts
structure.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListSignalsWithContacts(context.Background(), user)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return export.Write(os.Stdout, format, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.Write(f, format, records); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d signal(s) to %s\n", len(records), path)
	return nil
}

func init() {
	exportCmd.Flags().String("user", "", "owning user id (required)")
	exportCmd.Flags().String("format", "csv", "output format: csv or json")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}
