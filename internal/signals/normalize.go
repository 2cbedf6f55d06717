// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package signals turns connector output into canonical signals and removes
// signals the owner has already seen.
package signals

import (
	"math"
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// defaultSignalTypes is the signal type assumed when a connector leaves
// RawSignal.SignalType empty.
var defaultSignalTypes = map[types.SourceType]types.SignalType{
	types.SourceTenderAwards: types.SignalContractAward,
	types.SourceJobPostings:  types.SignalJobPosting,
}

var titlePrefixes = map[types.SignalType]string{
	types.SignalContractAward: "Contract award: ",
	types.SignalJobPosting:    "Hiring: ",
	types.SignalAgencyMatch:   "Agency match: ",
}

// legalSuffixes stay upper-case when an all-caps company name is re-cased.
var legalSuffixes = map[string]bool{
	"LLC": true, "INC": true, "LLP": true, "LTD": true, "LP": true,
	"PLLC": true, "PC": true, "USA": true, "US": true, "II": true,
	"III": true, "IV": true, "JV": true,
}

// portalHosts are hosts that never identify the company behind a signal.
var portalHosts = []string{
	"sam.gov",
	"usaspending.gov",
	"indeed.com",
	"linkedin.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"monster.com",
	"weworkremotely.com",
	"remoteok.com",
	"remotive.com",
	"greenhouse.io",
	"lever.co",
	"workday.com",
	"myworkdayjobs.com",
	"feedburner.com",
}

// hostPrefixes are stripped from company hosts.
var hostPrefixes = []string{"www.", "careers.", "jobs.", "apply."}

var usd = message.NewPrinter(language.AmericanEnglish)

// Normalize maps a RawSignal to a canonical Signal without ID, owner, or
// IsNew. It is deterministic: equal input yields equal output.
func Normalize(raw types.RawSignal) types.Signal {
	signalType := raw.SignalType
	if signalType == "" {
		signalType = defaultSignalTypes[raw.SourceType]
	}

	domain := DomainFromURL(raw.CompanyURL)
	if domain == "" {
		domain = DomainFromURL(raw.URL)
	}

	return types.Signal{
		CompanyName:   CompanyName(raw.CompanyName),
		CompanyDomain: domain,
		SignalType:    signalType,
		SignalTitle:   composeTitle(signalType, raw.Title),
		SignalDetail:  composeDetail(raw),
		SignalURL:     strings.TrimSpace(raw.URL),
		Location:      collapseSpace(raw.Location),
		Industry:      collapseSpace(raw.Industry),
		SourceType:    raw.SourceType,
		DetectedAt:    raw.DetectedAt.UTC().Truncate(time.Second),
	}
}

// NormalizeAll normalizes a batch, preserving order.
func NormalizeAll(raws []types.RawSignal) []types.Signal {
	out := make([]types.Signal, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}

// CompanyName collapses whitespace and re-cases all-caps names word by word,
// keeping legal suffixes upper-case. Mixed-case names keep their casing.
func CompanyName(name string) string {
	name = collapseSpace(name)
	if !isAllCaps(name) {
		return name
	}
	caser := cases.Title(language.AmericanEnglish)
	words := strings.Split(name, " ")
	for i, w := range words {
		core := strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if legalSuffixes[core] || strings.ContainsAny(w, "0123456789&") {
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// DomainFromURL derives a company domain from a URL. It returns "" for
// unparseable URLs and for job-board, feed, and government portal hosts.
func DomainFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, ".") || strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") {
		return ""
	}
	for _, p := range portalHosts {
		if host == p || strings.HasSuffix(host, "."+p) {
			return ""
		}
	}
	for _, p := range hostPrefixes {
		if strings.HasPrefix(host, p) && strings.Count(host, ".") > 1 {
			host = strings.TrimPrefix(host, p)
			break
		}
	}
	return host
}

func composeTitle(signalType types.SignalType, title string) string {
	title = collapseSpace(title)
	if title == "" {
		title = "untitled"
	}
	return titlePrefixes[signalType] + title
}

func composeDetail(raw types.RawSignal) string {
	parts := make([]string, 0, 3)
	if d := collapseSpace(raw.Detail); d != "" {
		parts = append(parts, d)
	}
	if a := collapseSpace(raw.Agency); a != "" {
		parts = append(parts, "Awarding agency: "+a+".")
	}
	if raw.Amount > 0 {
		parts = append(parts, usd.Sprintf("Award amount: $%d.", int64(math.Round(raw.Amount))))
	}
	return strings.Join(parts, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isAllCaps(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
