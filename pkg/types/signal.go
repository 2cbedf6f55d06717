// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the signal discovery
// pipeline: search profiles, raw and canonical signals, contacts, search
// runs, and configuration.
package types

import "time"

// SourceType identifies an external signal source. Each source type maps to
// exactly one connector.
type SourceType string

const (
	SourceTenderAwards SourceType = "tender_awards"
	SourceJobPostings  SourceType = "job_postings"
)

// SignalType classifies what kind of business event a signal records.
type SignalType string

const (
	SignalContractAward SignalType = "contract_award"
	SignalJobPosting    SignalType = "job_posting"
	SignalAgencyMatch   SignalType = "agency_match"
)

// RawSignal is a connector-specific candidate. It is never persisted; the
// normalizer turns it into a Signal.
type RawSignal struct {
	// SourceType is the connector that produced this candidate.
	SourceType SourceType `json:"source_type"`

	// SignalType is the kind of event the source reports.
	SignalType SignalType `json:"signal_type"`

	// SourceID is the source-local identifier, kept for traceability.
	SourceID string `json:"source_id"`

	// CompanyName is the company as named by the source. It may be partial.
	CompanyName string `json:"company_name"`

	// CompanyURL is a company website when the source reports one.
	CompanyURL string `json:"company_url,omitempty"`

	Title  string `json:"title"`
	Detail string `json:"detail"`

	// URL links back to the event at the source. Empty when the source has
	// no stable link.
	URL string `json:"url"`

	Location string `json:"location"`
	Industry string `json:"industry"`

	// Agency is the awarding or posting organization, when distinct from
	// the company.
	Agency string `json:"agency,omitempty"`

	// Amount is the monetary value of the event in USD; zero when unknown.
	Amount float64 `json:"amount,omitempty"`

	// DetectedAt is the event date reported by the source, not the fetch time.
	DetectedAt time.Time `json:"detected_at"`
}

// FetchResult is what a connector returns for one fetch. Err is a soft,
// human-readable error: a non-empty Err does not imply Signals is empty.
type FetchResult struct {
	Signals []RawSignal `json:"signals"`
	Err     string      `json:"error,omitempty"`
}

// Failed reports whether the fetch recorded an upstream error.
func (r FetchResult) Failed() bool { return r.Err != "" }

// Signal is the canonical, persisted record of an external event.
type Signal struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	CompanyName string `json:"company_name"`

	// CompanyDomain is empty when the domain could not be resolved.
	CompanyDomain string `json:"company_domain"`

	SignalType   SignalType `json:"signal_type"`
	SignalTitle  string     `json:"signal_title"`
	SignalDetail string     `json:"signal_detail"`
	SignalURL    string     `json:"signal_url"`
	Location     string     `json:"location"`
	Industry     string     `json:"industry"`
	SourceType   SourceType `json:"source_type"`
	DetectedAt   time.Time  `json:"detected_at"`

	// IsNew stays true until a user views the signal.
	IsNew bool `json:"is_new"`
}

// SignalContact is a person associated with a signal's company. Contacts are
// populated by an enrichment process outside the pipeline.
type SignalContact struct {
	ID          string `json:"id" yaml:"id"`
	SignalID    string `json:"signal_id" yaml:"signal_id"`
	FullName    string `json:"full_name" yaml:"full_name"`
	JobTitle    string `json:"job_title" yaml:"job_title"`
	Seniority   string `json:"seniority" yaml:"seniority"`
	Email       string `json:"email" yaml:"email"`
	EmailStatus string `json:"email_status" yaml:"email_status"`
	Phone       string `json:"phone" yaml:"phone"`
	LinkedInURL string `json:"linkedin_url" yaml:"linkedin_url"`
}

// SignalWithContacts joins a signal with its contacts for export.
type SignalWithContacts struct {
	Signal
	Contacts []SignalContact `json:"contacts"`
}
