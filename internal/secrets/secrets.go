// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials kept outside the config file. A secrets
// directory holds one file per credential; the file name is the key.
//
// Known keys: sam-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/pdiddy/signal-engine/internal/logging"
)

// SAMAPIKey is the SAM.gov public API key used by the tender award connector.
const SAMAPIKey = "sam-api-key"

// maxSecretSize bounds a credential file. Anything larger is not a key.
const maxSecretSize = 64 << 10

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads the credentials in dir. A directory that does not exist yields
// no secrets and no error.
func Load(dir string, logger logging.Logger) (Secrets, error) {
	s, err := LoadFS(os.DirFS(dir), logger)
	if errors.Is(err, fs.ErrNotExist) {
		return Secrets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	return s, nil
}

// LoadFS reads one credential per regular file at the root of fsys. Hidden
// files, directories, and blank files are ignored. A file that cannot be read
// or is implausibly large is skipped with a warning.
func LoadFS(fsys fs.FS, logger logging.Logger) (Secrets, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	s := make(Secrets, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		log := logger.WithField("secret", name)

		if info, err := entry.Info(); err == nil && info.Size() > maxSecretSize {
			log.WithField("bytes", info.Size()).Warn("secret file too large, skipping")
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			log.WithError(err).Warn("could not read secret")
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			s[name] = v
		}
	}
	logger.WithField("keys", len(s)).Debug("secrets loaded")
	return s, nil
}

// Get returns configured when it is non-empty, else the secret stored under key.
func (s Secrets) Get(key, configured string) string {
	if configured != "" {
		return configured
	}
	return s[key]
}

// Keys returns the loaded key names in sorted order. Values are never listed.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
