// internal/model/report.go
// Validation outcome types. ValidationResult and DocumentReport are
// created fresh per validation run and owned solely by the caller; the
// engine holds no state across runs.
package model

import (
	"time"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
)

// TargetRef is a resolved reference into the document object graph.
type TargetRef struct {
	Kind string `json:"kind"` // "document", "structElement", "annotation", "page"
	ID   string `json:"id,omitempty"`
	Page int    `json:"page,omitempty"` // 1-based, page bindings only
}

// IntegrityResult is the integrity/resolution verdict for a link record.
type IntegrityResult struct {
	// Checked is true when a content hash was present and a fetch was
	// attempted.
	Checked bool `json:"checked"`
	// HashVerified is true when the recomputed digest matched the declared
	// one for the URI recorded in ResolvedURI.
	HashVerified bool `json:"hashVerified"`
	// ResolvedURI is the URI (primary or alternate) whose content was
	// successfully fetched, empty when everything was unreachable.
	ResolvedURI string `json:"resolvedUri,omitempty"`
}

// ValidationResult is the per-record outcome of a validation run.
type ValidationResult struct {
	RecordID string `json:"recordId"`
	Valid    bool   `json:"isValid"`

	Errors   []issue.Issue `json:"errors,omitempty"`
	Warnings []issue.Issue `json:"warnings,omitempty"`

	Conformance ConformanceLevel `json:"conformanceLevel"`

	// DeclaredTrust is the record's own claim; EffectiveTrust is the
	// engine's verdict after integrity and signature-scope checks.
	DeclaredTrust  TrustLevel `json:"declaredTrust,omitempty"`
	EffectiveTrust TrustLevel `json:"effectiveTrust,omitempty"`

	ResolvedTarget *TargetRef       `json:"resolvedTarget,omitempty"`
	Integrity      *IntegrityResult `json:"integrity,omitempty"`
}

// ReportSummary aggregates counts over a document report.
type ReportSummary struct {
	Records  int            `json:"records"`
	Valid    int            `json:"valid"`
	Invalid  int            `json:"invalid"`
	Warnings int            `json:"warnings"`
	ByLevel  map[string]int `json:"byConformanceLevel"`
}

// DocumentReport is the aggregated outcome of validating every record
// extracted from one document. Results keeps extraction order regardless
// of evaluation order.
type DocumentReport struct {
	ID          string             `json:"id"` // assigned at persistence time
	DocumentID  string             `json:"documentId,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Results     []ValidationResult `json:"results"`
	// Warnings holds document-level findings that belong to no single
	// record, e.g. duplicate binding targets.
	Warnings []issue.Issue `json:"warnings,omitempty"`
	Summary  ReportSummary `json:"summary"`
}

// Summarize recomputes the summary counts from the current results.
func (r *DocumentReport) Summarize() {
	s := ReportSummary{
		Records: len(r.Results),
		ByLevel: make(map[string]int),
	}
	for _, res := range r.Results {
		if res.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		s.Warnings += len(res.Warnings)
		s.ByLevel[res.Conformance.String()]++
	}
	s.Warnings += len(r.Warnings)
	r.Summary = s
}
