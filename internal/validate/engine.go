// internal/validate/engine.go
// Package validate implements the SDL conformance and binding validation
// engine: per-record shape checking, binding resolution, link integrity,
// conformance classification, and the document-level orchestrator.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/fetch"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/graph"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/metrics"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// tracerName identifies engine spans.
const tracerName = "pdf-sdl/validate"

// Options tunes engine behavior.
type Options struct {
	// Workers bounds parallel per-record evaluation. Values below 1 mean
	// sequential evaluation.
	Workers int
	// RectPolicy controls out-of-bounds PageRef rect handling.
	RectPolicy RectPolicy
}

// Engine validates DataDef/LinkMeta records against a document object
// graph. It holds no per-run state: every call produces fresh results
// owned by the caller, and the same engine is safe for concurrent runs.
type Engine struct {
	schema  SchemaChecker // may be nil: Schema gate never passes
	scope   ScopeOracle   // may be nil: Signed gate never passes
	fetcher fetch.Fetcher // may be nil: integrity fetches skipped

	workers    int
	rectPolicy RectPolicy
	metrics    *metrics.Metrics
}

// New creates a validation engine with the given collaborators.
func New(schema SchemaChecker, scope ScopeOracle, fetcher fetch.Fetcher, opts Options) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	policy := opts.RectPolicy
	if policy == "" {
		policy = RectPolicyError
	}
	return &Engine{
		schema:     schema,
		scope:      scope,
		fetcher:    fetcher,
		workers:    workers,
		rectPolicy: policy,
		metrics:    metrics.NewMetrics(),
	}
}

// WithScope returns a copy of the engine using the given signature
// scope. Scopes are document-specific while the rest of the engine's
// collaborators are shared, so callers derive a per-document engine.
func (e *Engine) WithScope(scope ScopeOracle) *Engine {
	clone := *e
	clone.scope = scope
	return &clone
}

// ValidateDocument runs the full pipeline over every record extracted
// from one document and aggregates a DocumentReport. A single record's
// fatal failure never aborts the run. Result order matches extraction
// order regardless of worker completion order.
func (e *Engine) ValidateDocument(ctx context.Context, doc graph.Document, records []*model.DataDef) *model.DocumentReport {
	start := time.Now()
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ValidateDocument")
	span.SetAttributes(attribute.Int("sdl.records", len(records)))
	defer span.End()

	report := &model.DocumentReport{
		GeneratedAt: time.Now().UTC(),
		Results:     make([]model.ValidationResult, len(records)),
	}

	// Per-record evaluation is side-effect-free and runs in parallel;
	// results merge by original index, not completion time.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rec := range records {
		g.Go(func() error {
			report.Results[i] = e.ValidateRecord(gctx, doc, rec)
			return nil
		})
	}
	// Workers never return errors; issues are collected, not thrown.
	_ = g.Wait()

	// Cross-record concern: duplicate binding targets. This is the one
	// accumulator shared across records, applied as a merge step after
	// the parallel phase.
	report.Warnings = append(report.Warnings, duplicateTargetWarnings(report.Results)...)

	report.Summarize()

	for _, res := range report.Results {
		e.metrics.RecordValidationTotal.WithLabelValues(
			labelDataType(records, res.RecordID), res.Conformance.String()).Inc()
	}
	e.metrics.DocumentValidationDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	slog.Debug("document validated",
		"records", report.Summary.Records,
		"valid", report.Summary.Valid,
		"invalid", report.Summary.Invalid,
		"duration", time.Since(start))

	return report
}

// ValidateRecord runs shape, binding, integrity, and conformance checks
// for one record. Pure with respect to the graph and the record.
func (e *Engine) ValidateRecord(ctx context.Context, doc graph.Document, rec *model.DataDef) model.ValidationResult {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ValidateRecord")
	span.SetAttributes(
		attribute.String("sdl.record_id", rec.ID),
		attribute.String("sdl.data_type", string(rec.DataType)),
	)
	defer span.End()

	result := model.ValidationResult{
		RecordID:      rec.ID,
		DeclaredTrust: rec.TrustLevel,
	}

	shapeIssues := CheckShape(rec)
	if issue.HasFatal(shapeIssues) {
		// Record cannot be interpreted at all; stop here, report, continue
		// with the rest of the document.
		result.Errors, result.Warnings = issue.Split(shapeIssues)
		result.Conformance = model.ConformanceNone
		span.SetAttributes(attribute.String("sdl.conformance", result.Conformance.String()))
		return result
	}

	target, bindingIssues := ResolveBinding(doc, rec.Binding, e.rectPolicy)
	result.ResolvedTarget = target

	var integrityIssues []issue.Issue
	result.Integrity, integrityIssues = CheckIntegrity(ctx, rec, e.fetcher)
	if e.metrics != nil && result.Integrity != nil && result.Integrity.Checked {
		status := "unreachable"
		if result.Integrity.ResolvedURI != "" {
			status = "ok"
		}
		e.metrics.ContentFetchTotal.WithLabelValues(status).Inc()
	}

	in := gateInput{
		shapeClean:      !issue.HasBlocking(shapeIssues),
		bindingResolved: target != nil && !issue.HasBlocking(bindingIssues),
		schemaURI:       rec.SchemaURI,
		schemaOutcome:   e.checkSchema(ctx, rec),
		hasProvenance:   rec.HasProvenance(),
		inScope:         e.scope != nil && e.scope.Covers(rec.Location),
	}
	result.Conformance = classifyConformance(in)

	// Validity is structural: shape clean and binding resolved. Integrity
	// failures downgrade trust instead of invalidating the record.
	result.Valid = in.shapeClean && in.bindingResolved

	trustIssues := e.assessTrust(&result, rec, in.inScope)

	all := make([]issue.Issue, 0, len(shapeIssues)+len(bindingIssues)+len(integrityIssues)+len(trustIssues))
	all = append(all, shapeIssues...)
	all = append(all, bindingIssues...)
	all = append(all, integrityIssues...)
	all = append(all, trustIssues...)
	result.Errors, result.Warnings = issue.Split(all)

	span.SetAttributes(attribute.String("sdl.conformance", result.Conformance.String()))
	return result
}

// checkSchema consults the schema-validation collaborator. Without a
// checker or a schema URI the outcome is unreachable, which fails the
// Schema gate without raising an issue.
func (e *Engine) checkSchema(ctx context.Context, rec *model.DataDef) SchemaOutcome {
	if e.schema == nil || rec.SchemaURI == "" {
		return SchemaUnreachable
	}
	return e.schema.Check(ctx, rec.SchemaURI, rec.DecodedValue)
}

// assessTrust computes the effective trust verdict from the declared
// level, the integrity outcome, and signature-scope containment.
func (e *Engine) assessTrust(result *model.ValidationResult, rec *model.DataDef, inScope bool) []issue.Issue {
	var issues []issue.Issue
	effective := rec.TrustLevel

	if result.Integrity != nil && result.Integrity.Checked && !result.Integrity.HashVerified {
		if downgraded := model.DowngradeTrust(effective, model.TrustEnriched); downgraded != effective {
			issues = append(issues, issue.New(issue.TrustDowngraded, "trustLevel",
				"effective trust capped at %s: content hash not verified", downgraded))
			effective = downgraded
		}
	}

	if effective == model.TrustSigned && !inScope {
		effective = model.TrustAuthor
		issues = append(issues, issue.New(issue.TrustDowngraded, "trustLevel",
			"declared Signed but storage location is outside signature scope"))
	}

	result.EffectiveTrust = effective
	return issues
}

// duplicateTargetWarnings flags structure elements and annotations bound
// by more than one record. Document-level bindings and page regions are
// exempt: many records may legitimately share a page.
func duplicateTargetWarnings(results []model.ValidationResult) []issue.Issue {
	seen := make(map[string][]string)
	for _, res := range results {
		t := res.ResolvedTarget
		if t == nil || t.ID == "" {
			continue
		}
		key := t.Kind + "/" + t.ID
		seen[key] = append(seen[key], res.RecordID)
	}

	keys := make([]string, 0, len(seen))
	for key, ids := range seen {
		if len(ids) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var warnings []issue.Issue
	for _, key := range keys {
		warnings = append(warnings, issue.New(issue.DuplicateBindingTarget, "",
			"target %s is bound by records %v", key, seen[key]))
	}
	return warnings
}

// labelDataType finds the data type label for a record id, for metrics.
func labelDataType(records []*model.DataDef, id string) string {
	for _, rec := range records {
		if rec.ID == id {
			if model.KnownDataType(rec.DataType) {
				return string(rec.DataType)
			}
			return "unknown"
		}
	}
	return "unknown"
}

// DecodeRecords decodes raw record dictionaries in extraction order.
// Dictionaries that cannot be interpreted at all become placeholder
// results later: the returned map carries their decode errors by index.
func DecodeRecords(raws []map[string]any) ([]*model.DataDef, map[int]error) {
	records := make([]*model.DataDef, 0, len(raws))
	failed := make(map[int]error)
	for i, raw := range raws {
		id := fmt.Sprintf("record-%d", i+1)
		if s, ok := raw["ID"].(string); ok && s != "" {
			id = s
		}
		rec, err := model.FromDict(id, raw)
		if err != nil {
			failed[i] = err
			records = append(records, &model.DataDef{ID: id})
			continue
		}
		records = append(records, rec)
	}
	return records, failed
}
