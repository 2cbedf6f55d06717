// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the signal-engine CLI and service.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/signal-engine/internal/connector"
	"github.com/pdiddy/signal-engine/internal/discovery"
	"github.com/pdiddy/signal-engine/internal/logging"
	"github.com/pdiddy/signal-engine/internal/secrets"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is configured in PersistentPreRunE once config is read.
var logger = logrus.New()

// rootCmd is the base command for the signal-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "signal-engine",
	Short: "Discover lead-generation signals from external sources",
	Long: `signal-engine runs saved search profiles against external signal sources
(government contract awards, job posting feeds), stores the net-new signals
per user, and exports them with their contacts as CSV or JSON.

Use "serve" to expose the pipeline over HTTP, or the run, fetch, runs and
export subcommands to drive it from the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(loadConfig().Log, os.Stderr)

		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.WithField("keys", s.Keys()).Debug("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./signal-engine.yaml or ~/.config/signal-engine/signal-engine.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default: data/signals.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("secrets_dir", ".secrets/")
	viper.SetDefault("connectors.timeout", "20s")
	viper.SetDefault("connectors.user_agent", "signal-engine/"+version)
	viper.SetDefault("connectors.max_retries", 3)
	viper.SetDefault("connectors.tender_awards.enabled", true)
	viper.SetDefault("connectors.tender_awards.base_url", "")
	viper.SetDefault("connectors.tender_awards.api_key", "")
	viper.SetDefault("connectors.tender_awards.page_size", 100)
	viper.SetDefault("connectors.job_postings.enabled", true)
	viper.SetDefault("connectors.job_postings.feeds", []string{})
	viper.SetDefault("discovery.window_days", 7)
	viper.SetDefault("discovery.deadline", "30s")
	viper.SetDefault("store.path", "data/signals.db")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.user_header", "X-User-ID")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("signal-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "signal-engine"))
		}
	}

	viper.SetEnvPrefix("SIGNAL_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the viper state into a Config. Decode errors leave
// the defaults in place.
func loadConfig() types.Config {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid configuration: %v\n", err)
	}
	cfg.Connectors.TenderAwards.APIKey = loadedSecrets.Get(secrets.SAMAPIKey, cfg.Connectors.TenderAwards.APIKey)
	return cfg
}

// openStore opens the configured database.
func openStore(cfg types.Config) (*store.Store, error) {
	return store.Open(cfg.Store)
}

// newOrchestrator wires the connector registry and store into an
// orchestrator. st may be nil for single-source fetches; metrics may be nil.
func newOrchestrator(cfg types.Config, st discovery.Store, metrics *discovery.Metrics) *discovery.Orchestrator {
	registry := connector.Build(cfg.Connectors, logger)
	return discovery.New(st, registry, cfg.Discovery, logger, metrics)
}

// userFlag reads the required --user flag.
func userFlag(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	user = strings.TrimSpace(user)
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
