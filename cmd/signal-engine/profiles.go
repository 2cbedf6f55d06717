// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage search profiles",
	Long: `Profiles imports search profiles from YAML and lists a user's profiles.
Profiles are authored outside the pipeline; the pipeline only reads them.`,
}

// --- import subcommand ---

var profilesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update profiles from a YAML file",
	Long: `Import reads a YAML document with a top-level "profiles" list. Each entry
needs an id and a user_id; existing profiles with the same id are replaced.

  profiles:
    - id: federal-cloud
      user_id: u1
      name: Federal cloud work
      industry: "541512"
      location: VA
      keywords: [cloud, migration]
      sources: [tender_awards, job_postings]`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesImport,
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportProfiles(context.Background(), f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d profile(s)\n", n)
	return nil
}

// --- list subcommand ---

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's search profiles",
	RunE:  runProfilesList,
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	profiles, err := st.ListProfiles(context.Background(), user)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}

	if len(profiles) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}
	for _, p := range profiles {
		sources := make([]string, 0, len(p.Sources))
		for _, s := range p.Sources {
			sources = append(sources, string(s))
		}
		fmt.Printf("%s  %s\n", p.ID, p.Name)
		fmt.Printf("    industry=%q location=%q keywords=%s sources=%s\n",
			p.Industry, p.Location, strings.Join(p.Keywords, ","), strings.Join(sources, ","))
	}
	return nil
}

// --- contacts ---

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage signal contacts produced by enrichment",
}

var contactsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Attach enrichment contacts to stored signals",
	Long: `Import reads a YAML document with a top-level "contacts" list and replaces
the contacts of every signal it mentions.

  contacts:
    - signal_id: 6f1c...
      full_name: Ada Lovelace
      job_title: CTO
      email: ada@example.com
      email_status: verified`,
	Args: cobra.ExactArgs(1),
	RunE: runContactsImport,
}

func runContactsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := openStore(loadConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportContacts(context.Background(), f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d contact(s)\n", n)
	return nil
}

func init() {
	profilesListCmd.Flags().String("user", "", "owning user id (required)")
	profilesListCmd.Flags().Bool("json", false, "output profiles as JSON")

	profilesCmd.AddCommand(profilesImportCmd, profilesListCmd)
	contactsCmd.AddCommand(contactsImportCmd)
	rootCmd.AddCommand(profilesCmd, contactsCmd)
}
