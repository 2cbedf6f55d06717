// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by connectors that make network
// requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "signal-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429/503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// TenderAwardsConfig holds settings for the SAM.gov award notice connector.
type TenderAwardsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// BaseURL overrides the opportunities search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is the SAM.gov public API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// PageSize is the number of notices requested per call (default 100, max 1000).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
}

// JobPostingsConfig holds settings for the RSS/Atom job feed connector.
type JobPostingsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Feeds lists the feed URLs to pull.
	Feeds []string `json:"feeds" yaml:"feeds" mapstructure:"feeds"`
}

// ConnectorsConfig groups connector settings.
type ConnectorsConfig struct {
	HTTPConfig   `yaml:",inline" mapstructure:",squash"`
	TenderAwards TenderAwardsConfig `json:"tender_awards" yaml:"tender_awards" mapstructure:"tender_awards"`
	JobPostings  JobPostingsConfig  `json:"job_postings" yaml:"job_postings" mapstructure:"job_postings"`
}

// DiscoveryConfig holds settings for the search orchestrator.
type DiscoveryConfig struct {
	// WindowDays is the default fetch window in days (default 7).
	WindowDays int `json:"window_days" yaml:"window_days" mapstructure:"window_days"`

	// Deadline is the wall-clock budget for a whole run (default 30s).
	Deadline time.Duration `json:"deadline" yaml:"deadline" mapstructure:"deadline"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file (default "data/signals.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// UserHeader names the header carrying the authenticated user id, set
	// by the upstream auth proxy.
	UserHeader string `json:"user_header" yaml:"user_header" mapstructure:"user_header"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all configuration for the signal engine.
type Config struct {
	Connectors ConnectorsConfig `json:"connectors" yaml:"connectors" mapstructure:"connectors"`
	Discovery  DiscoveryConfig  `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
