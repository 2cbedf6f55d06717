// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists search profiles, signals, contacts, and search runs
// in SQLite. Every read and write is scoped by owning user.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/signal-engine/internal/signals"
	"github.com/pdiddy/signal-engine/pkg/types"
)

const defaultDBPath = "data/signals.db"

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store manages the signal SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = defaultDBPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := New(db)
	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// New wraps an existing database handle without touching the schema.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			industry TEXT,
			location TEXT,
			keywords TEXT,
			sources TEXT,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_user ON profiles(user_id)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			dedup_key TEXT NOT NULL,
			company_name TEXT,
			company_domain TEXT,
			signal_type TEXT NOT NULL,
			signal_title TEXT,
			signal_detail TEXT,
			signal_url TEXT,
			location TEXT,
			industry TEXT,
			source_type TEXT NOT NULL,
			detected_at TEXT NOT NULL,
			is_new INTEGER NOT NULL DEFAULT 1,
			run_id TEXT,
			UNIQUE(user_id, dedup_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_user_detected ON signals(user_id, detected_at)`,
		`CREATE TABLE IF NOT EXISTS signal_contacts (
			id TEXT PRIMARY KEY,
			signal_id TEXT NOT NULL REFERENCES signals(id) ON DELETE CASCADE,
			full_name TEXT,
			job_title TEXT,
			seniority TEXT,
			email TEXT,
			email_status TEXT,
			phone TEXT,
			linkedin_url TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_signal ON signal_contacts(signal_id)`,
		`CREATE TABLE IF NOT EXISTS search_runs (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			ran_at TEXT NOT NULL,
			new_signals INTEGER NOT NULL,
			errors TEXT,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user_ran ON search_runs(user_id, ran_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// --- profiles ---

// PutProfile inserts or replaces a search profile.
func (s *Store) PutProfile(ctx context.Context, p types.SearchProfile) error {
	if p.ID == "" || p.UserID == "" {
		return fmt.Errorf("profile requires id and user_id")
	}
	keywords, _ := json.Marshal(p.Keywords)
	sources, _ := json.Marshal(p.Sources)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, name, industry, location, keywords, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			user_id=excluded.user_id, name=excluded.name, industry=excluded.industry,
			location=excluded.location, keywords=excluded.keywords, sources=excluded.sources`,
		p.ID, p.UserID, p.Name, p.Industry, p.Location,
		string(keywords), string(sources), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile returns the profile with the given id, or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, id string) (types.SearchProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, industry, location, keywords, sources, created_at
		 FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SearchProfile{}, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.SearchProfile{}, fmt.Errorf("loading profile %s: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns a user's profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context, userID string) ([]types.SearchProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, industry, location, keywords, sources, created_at
		 FROM profiles WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []types.SearchProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(sc scanner) (types.SearchProfile, error) {
	var (
		p                            types.SearchProfile
		industry, location           sql.NullString
		keywords, sources, createdAt sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.UserID, &p.Name, &industry, &location, &keywords, &sources, &createdAt); err != nil {
		return p, err
	}
	p.Industry = industry.String
	p.Location = location.String
	if keywords.Valid && keywords.String != "" {
		json.Unmarshal([]byte(keywords.String), &p.Keywords)
	}
	if sources.Valid && sources.String != "" {
		json.Unmarshal([]byte(sources.String), &p.Sources)
	}
	p.CreatedAt = parseTime(createdAt.String)
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// dedupKey is the unique identity of a signal within its owner's set.
func dedupKey(sig types.Signal) string {
	return signals.Key(sig)
}
