// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signal-engine/pkg/types"
)

func sampleSignal(id string) types.Signal {
	return types.Signal{
		ID:            id,
		UserID:        "u1",
		CompanyName:   "Acme",
		CompanyDomain: "acme.com",
		SignalType:    types.SignalContractAward,
		SignalTitle:   "Contract award: Cloud migration",
		SignalDetail:  "Awarding agency: GSA.",
		SignalURL:     "https://sam.gov/opp/" + id + "/view",
		Location:      "Reston, VA",
		Industry:      "541512",
		SourceType:    types.SourceTenderAwards,
		DetectedAt:    time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
	}
}

func TestRowsFanOutPerContact(t *testing.T) {
	records := []types.SignalWithContacts{{
		Signal: sampleSignal("s1"),
		Contacts: []types.SignalContact{
			{FullName: "Ada Lovelace", JobTitle: "CTO", Email: "ada@acme.com"},
			{FullName: "Grace Hopper", JobTitle: "VP Engineering", Phone: "555-0100"},
		},
	}}

	rows := slices.Collect(Rows(records))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Len(t, r, len(Columns))
	}
	assert.Equal(t, rows[0][:10], rows[1][:10], "signal columns repeat")
	assert.NotEqual(t, rows[0][10:], rows[1][10:])
	assert.Equal(t, "Ada Lovelace", rows[0][10])
	assert.Equal(t, "555-0100", rows[1][15])
	assert.Equal(t, "2026-03-09T14:00:00Z", rows[0][9])
}

func TestRowsNoContactsSingleRow(t *testing.T) {
	rows := slices.Collect(Rows([]types.SignalWithContacts{{Signal: sampleSignal("s1")}}))
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(Columns))
	for _, v := range rows[0][10:] {
		assert.Empty(t, v)
	}
}

func TestRowsStopsEarly(t *testing.T) {
	records := []types.SignalWithContacts{
		{Signal: sampleSignal("s1")},
		{Signal: sampleSignal("s2")},
		{Signal: sampleSignal("s3")},
	}
	n := 0
	for range Rows(records) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Acme, Inc. "The Best"`, `"Acme, Inc. ""The Best"""`},
		{"plain", "plain"},
		{"", ""},
		{"line one\nline two", "\"line one\nline two\""},
		{"line one\r\nline two", "\"line one\r\nline two\""},
		{"bare\rreturn", "\"bare\rreturn\""},
		{"trailing ", "trailing "},
		{` leading space`, ` leading space`},
		{`say "hi"`, `"say ""hi"""`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), tt.in)
	}
}

func TestWriteCSV(t *testing.T) {
	sig := sampleSignal("s1")
	sig.CompanyName = `Acme, Inc. "The Best"`
	sig.CompanyDomain = ""

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []types.SignalWithContacts{{Signal: sig}}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"Acme, Inc. ""The Best""",,contract_award,`), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ",,,,,,,"), "empty contact columns")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []types.SignalWithContacts{{Signal: sampleSignal("s1")}}))

	out := buf.String()
	assert.Contains(t, out, "\n  {", "indented")
	assert.Contains(t, out, `"company_name": "Acme"`)
	assert.Contains(t, out, `"contacts": []`)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "sam.gov/opp/s1/view", strings.TrimPrefix(decoded[0]["signal_url"].(string), "https://"))
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "application/json", f.ContentType())
	assert.Equal(t, "signals-2026-03-09.json", f.Filename(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)))

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
