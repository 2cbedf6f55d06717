// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/signal-engine/pkg/types"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// RunQuery holds parameters for run history queries.
type RunQuery struct {
	UserID string

	// ProfileID optionally restricts runs to one profile.
	ProfileID string

	// Limit bounds the result count. Zero uses the default (20); values
	// above 200 are capped.
	Limit int
}

// ListRuns returns a user's search runs, newest first.
func (s *Store) ListRuns(ctx context.Context, q RunQuery) ([]types.SearchRun, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	var (
		qb   strings.Builder
		args = []any{q.UserID}
	)
	qb.WriteString(`SELECT id, profile_id, user_id, ran_at, new_signals, errors, status
		FROM search_runs WHERE user_id = ?`)
	if q.ProfileID != "" {
		qb.WriteString(` AND profile_id = ?`)
		args = append(args, q.ProfileID)
	}
	qb.WriteString(` ORDER BY ran_at DESC, id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []types.SearchRun
	for rows.Next() {
		var (
			r            types.SearchRun
			ranAt, state string
			errs         sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.UserID, &ranAt, &r.NewSignals, &errs, &state); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.RanAt = parseTime(ranAt)
		r.Status = types.RunStatus(state)
		r.Errors = []types.SourceError{}
		if errs.Valid && errs.String != "" {
			if err := json.Unmarshal([]byte(errs.String), &r.Errors); err != nil {
				return nil, fmt.Errorf("decoding errors of run %s: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
