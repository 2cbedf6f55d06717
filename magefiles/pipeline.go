//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const sampleProfiles = `profiles:
  - id: federal-cloud
    user_id: demo
    name: Federal cloud work
    industry: "541512"
    location: VA
    keywords: [cloud, migration]
    sources: [tender_awards, job_postings]
`

const sampleConfig = `connectors:
  timeout: 20s
  max_retries: 3
  tender_awards:
    enabled: true
    page_size: 100
  job_postings:
    enabled: true
    feeds:
      - https://weworkremotely.com/categories/remote-devops-sysadmin-jobs.rss
discovery:
  window_days: 7
  deadline: 30s
store:
  path: data/signals.db
server:
  addr: ":8080"
log:
  level: info
  format: text
`

// Sample writes an example config and a demo profile, then imports the
// profile. Existing files are left alone.
func Sample() error {
	mg.Deps(Init, Build)
	files := map[string]string{
		"signal-engine.yaml":                   sampleConfig,
		filepath.Join("data", "profiles.yaml"): sampleProfiles,
	}
	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("  %s exists, skipped\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	return sh.RunV(filepath.Join(binDir, binName), "profiles", "import", filepath.Join("data", "profiles.yaml"))
}

// Run executes the demo profile once.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "run", "federal-cloud", "--user", "demo")
}

// Serve starts the HTTP service.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "serve")
}
