// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/signal-engine/pkg/types"
)

const signalColumns = `id, user_id, company_name, company_domain, signal_type, signal_title,
	signal_detail, signal_url, location, industry, source_type, detected_at, is_new`

// ListSignals returns every signal owned by userID, newest first.
func (s *Store) ListSignals(ctx context.Context, userID string) ([]types.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE user_id = ? ORDER BY detected_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing signals: %w", err)
	}
	defer rows.Close()

	var out []types.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning signal: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// CountSignals returns the number of signals owned by userID.
func (s *Store) CountSignals(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM signals WHERE user_id = ?`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting signals: %w", err)
	}
	return n, nil
}

// SaveRun writes net-new signals and the run record in one transaction.
// Signals whose identity key already exists for the owner are skipped by
// the unique constraint, so overlapping runs cannot duplicate rows. On
// success run.NewSignals holds the number of rows actually inserted. On any
// error nothing is written and run is left unchanged.
func (s *Store) SaveRun(ctx context.Context, run *types.SearchRun, sigs []types.Signal) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	if len(sigs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO signals (`+signalColumns+`, dedup_key, run_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("preparing signal insert: %w", err)
		}
		defer stmt.Close()

		for _, sig := range sigs {
			if sig.UserID != run.UserID {
				return 0, fmt.Errorf("signal %s owned by %q, run owned by %q", sig.ID, sig.UserID, run.UserID)
			}
			res, err := stmt.ExecContext(ctx,
				sig.ID, sig.UserID, sig.CompanyName, nullable(sig.CompanyDomain),
				string(sig.SignalType), sig.SignalTitle, sig.SignalDetail, sig.SignalURL,
				sig.Location, sig.Industry, string(sig.SourceType),
				formatTime(sig.DetectedAt), sig.IsNew, dedupKey(sig), run.ID,
			)
			if err != nil {
				return 0, fmt.Errorf("inserting signal %s: %w", sig.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, fmt.Errorf("reading insert result: %w", err)
			}
			inserted += int(n)
		}
	}

	errs := run.Errors
	if errs == nil {
		errs = []types.SourceError{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return 0, fmt.Errorf("encoding run errors: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_runs (id, profile_id, user_id, ran_at, new_signals, errors, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProfileID, run.UserID, formatTime(run.RanAt), inserted, string(errsJSON), string(run.Status),
	); err != nil {
		return 0, fmt.Errorf("inserting search run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	run.NewSignals = inserted
	return inserted, nil
}

// ListSignalsWithContacts returns a user's signals joined with their
// contacts, newest first. Signals without contacts carry an empty slice.
func (s *Store) ListSignalsWithContacts(ctx context.Context, userID string) ([]types.SignalWithContacts, error) {
	sigs, err := s.ListSignals(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.signal_id, c.full_name, c.job_title, c.seniority, c.email,
			c.email_status, c.phone, c.linkedin_url
		 FROM signal_contacts c
		 JOIN signals s ON s.id = c.signal_id
		 WHERE s.user_id = ?
		 ORDER BY c.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	bySignal := make(map[string][]types.SignalContact)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		bySignal[c.SignalID] = append(bySignal[c.SignalID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]types.SignalWithContacts, len(sigs))
	for i, sig := range sigs {
		contacts := bySignal[sig.ID]
		if contacts == nil {
			contacts = []types.SignalContact{}
		}
		out[i] = types.SignalWithContacts{Signal: sig, Contacts: contacts}
	}
	return out, nil
}

// PutContacts replaces the contacts attached to a signal.
func (s *Store) PutContacts(ctx context.Context, signalID string, contacts []types.SignalContact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM signals WHERE id = ?`, signalID).Scan(&exists); err != nil {
		return fmt.Errorf("checking signal %s: %w", signalID, err)
	}
	if exists == 0 {
		return fmt.Errorf("signal %s: %w", signalID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM signal_contacts WHERE signal_id = ?`, signalID); err != nil {
		return fmt.Errorf("deleting old contacts: %w", err)
	}
	for _, c := range contacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signal_contacts (id, signal_id, full_name, job_title, seniority, email, email_status, phone, linkedin_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, signalID, c.FullName, c.JobTitle, c.Seniority, c.Email, c.EmailStatus, c.Phone, c.LinkedInURL,
		); err != nil {
			return fmt.Errorf("inserting contact %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func scanSignal(sc scanner) (types.Signal, error) {
	var (
		sig                                 types.Signal
		name, domain, title, detail, sigURL sql.NullString
		location, industry                  sql.NullString
		signalType, sourceType, detectedAt  string
	)
	err := sc.Scan(&sig.ID, &sig.UserID, &name, &domain, &signalType, &title,
		&detail, &sigURL, &location, &industry, &sourceType, &detectedAt, &sig.IsNew)
	if err != nil {
		return sig, err
	}
	sig.CompanyName = name.String
	sig.CompanyDomain = domain.String
	sig.SignalType = types.SignalType(signalType)
	sig.SignalTitle = title.String
	sig.SignalDetail = detail.String
	sig.SignalURL = sigURL.String
	sig.Location = location.String
	sig.Industry = industry.String
	sig.SourceType = types.SourceType(sourceType)
	sig.DetectedAt = parseTime(detectedAt)
	return sig, nil
}

// scanContact tolerates NULL columns; missing fields read as "".
func scanContact(sc scanner) (types.SignalContact, error) {
	var (
		c                                     types.SignalContact
		name, title, seniority, email, status sql.NullString
		phone, linkedin                       sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.SignalID, &name, &title, &seniority, &email, &status, &phone, &linkedin); err != nil {
		return c, err
	}
	c.FullName = name.String
	c.JobTitle = title.String
	c.Seniority = seniority.String
	c.Email = email.String
	c.EmailStatus = status.String
	c.Phone = phone.String
	c.LinkedInURL = linkedin.String
	return c, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
