// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export serializes a user's signals, joined with their contacts,
// to CSV or JSON for downstream enrichment tools.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied format name to a Format. An empty name
// selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or json)", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the attachment name for an export taken at t.
func (f Format) Filename(t time.Time) string {
	return "signals-" + t.UTC().Format("2006-01-02") + "." + string(f)
}

// Columns is the fixed CSV column order.
var Columns = []string{
	"company_name",
	"company_domain",
	"signal_type",
	"signal_title",
	"signal_detail",
	"signal_url",
	"location",
	"industry",
	"source_type",
	"detected_at",
	"contact_name",
	"contact_title",
	"contact_seniority",
	"contact_email",
	"contact_email_status",
	"contact_phone",
	"contact_linkedin",
}

// Rows yields one row per (signal, contact) pair. A signal without contacts
// yields a single row with empty contact columns. Rows are produced lazily
// and do not include the header.
func Rows(records []types.SignalWithContacts) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, rec := range records {
			base := signalColumns(rec.Signal)
			if len(rec.Contacts) == 0 {
				if !yield(append(base, make([]string, 7)...)) {
					return
				}
				continue
			}
			for _, c := range rec.Contacts {
				row := make([]string, 0, len(Columns))
				row = append(row, base...)
				row = append(row, c.FullName, c.JobTitle, c.Seniority, c.Email, c.EmailStatus, c.Phone, c.LinkedInURL)
				if !yield(row) {
					return
				}
			}
		}
	}
}

func signalColumns(s types.Signal) []string {
	detected := ""
	if !s.DetectedAt.IsZero() {
		detected = s.DetectedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		s.CompanyName,
		s.CompanyDomain,
		string(s.SignalType),
		s.SignalTitle,
		s.SignalDetail,
		s.SignalURL,
		s.Location,
		s.Industry,
		string(s.SourceType),
		detected,
	}
}

// Escape quotes a CSV field when it contains a comma, a double quote, or a
// line break (LF or CR), doubling any inner quotes. Other values, including
// those with leading or trailing spaces, are returned unchanged.
func Escape(v string) string {
	if !strings.ContainsAny(v, ",\"\n\r") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// WriteCSV writes the header and every row of records to w.
func WriteCSV(w io.Writer, records []types.SignalWithContacts) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, Columns); err != nil {
		return err
	}
	for row := range Rows(records) {
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, row []string) error {
	for i, v := range row {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(Escape(v))
	}
	_, err := w.WriteString("\n")
	return err
}

// WriteJSON writes records as an indented JSON array. Missing slices are
// written as [] rather than null.
func WriteJSON(w io.Writer, records []types.SignalWithContacts) error {
	out := make([]types.SignalWithContacts, len(records))
	for i, rec := range records {
		if rec.Contacts == nil {
			rec.Contacts = []types.SignalContact{}
		}
		out[i] = rec
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Write dispatches on f.
func Write(w io.Writer, f Format, records []types.SignalWithContacts) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}
