// Package conformance provides a black-box harness that runs the SDL
// scenario ladder against a live service instance.
package conformance

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/event"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/fetch"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/jwks"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/reportstore"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/server"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/validate"
)

// Config holds configuration for the conformance test harness.
type Config struct {
	// JWTIssuer and JWTAudience enable authentication when both are set.
	JWTIssuer   string
	JWTAudience string

	// Workers bounds parallel record validation inside the engine.
	Workers int

	// RectPolicy selects out-of-bounds rect handling ("error" or "clamp").
	RectPolicy validate.RectPolicy
}

// Harness runs conformance scenarios against an in-process service
// wired with in-memory collaborators.
type Harness struct {
	server  *httptest.Server
	store   reportstore.Store
	pub     event.Publisher
	fetcher *fetch.Memory
	schemas *schemaStub

	jwtIssuer   string
	jwtAudience string
}

// schemaStub maps schema URIs to fixed outcomes so ladder scenarios can
// exercise the Schema gate without a schema registry.
type schemaStub struct {
	outcomes map[string]validate.SchemaOutcome
}

func (s *schemaStub) Check(_ context.Context, schemaURI string, _ any) validate.SchemaOutcome {
	if out, ok := s.outcomes[schemaURI]; ok {
		return out
	}
	return validate.SchemaUnreachable
}

// noopPublisher is a no-op implementation of event.Publisher for testing.
type noopPublisher struct{}

func (n *noopPublisher) PublishReportValidated(context.Context, *model.DocumentReport) error {
	return nil
}

func (n *noopPublisher) Close() error { return nil }

// NewHarness creates a conformance test harness around a live test server.
func NewHarness(cfg Config) (*Harness, error) {
	store := reportstore.NewMemory()
	pub := &noopPublisher{}
	fetcher := fetch.NewMemory()
	schemas := &schemaStub{outcomes: make(map[string]validate.SchemaOutcome)}

	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	engine := validate.New(schemas, nil, fetcher, validate.Options{
		Workers:    workers,
		RectPolicy: cfg.RectPolicy,
	})

	var jwksClient *jwks.Client
	if cfg.JWTIssuer != "" {
		jwksClient = jwks.NewTestClient()
	}

	mux := server.NewMux(store, pub, engine, jwksClient, cfg.JWTIssuer, cfg.JWTAudience)

	return &Harness{
		server:      httptest.NewServer(mux),
		store:       store,
		pub:         pub,
		fetcher:     fetcher,
		schemas:     schemas,
		jwtIssuer:   cfg.JWTIssuer,
		jwtAudience: cfg.JWTAudience,
	}, nil
}

// URL returns the base URL of the test server.
func (h *Harness) URL() string {
	return h.server.URL
}

// Close shuts down the test server and cleans up resources.
func (h *Harness) Close() {
	h.server.Close()
	_ = h.pub.Close()
}

// SeedContent makes a link target fetchable with the given body.
func (h *Harness) SeedContent(uri string, body []byte) {
	h.fetcher.Put(uri, body)
}

// SeedSchema fixes the outcome of validating against a schema URI.
func (h *Harness) SeedSchema(uri string, outcome validate.SchemaOutcome) {
	h.schemas.outcomes[uri] = outcome
}

// AuthToken mints a bearer token accepted by the harness's test-mode key
// client. Empty when authentication is disabled.
func (h *Harness) AuthToken() (string, error) {
	if h.jwtIssuer == "" {
		return "", nil
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": h.jwtIssuer,
		"aud": h.jwtAudience,
		"sub": "conformance-harness",
	}).SignedString([]byte("conformance-harness-key"))
}

// Report views decode the service's JSON responses without depending on
// the engine's internal result types.

type issueView struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Field    string `json:"field"`
}

type integrityView struct {
	Checked      bool   `json:"checked"`
	HashVerified bool   `json:"hashVerified"`
	ResolvedURI  string `json:"resolvedUri"`
}

type resultView struct {
	RecordID         string         `json:"recordId"`
	IsValid          bool           `json:"isValid"`
	ConformanceLevel string         `json:"conformanceLevel"`
	DeclaredTrust    string         `json:"declaredTrust"`
	EffectiveTrust   string         `json:"effectiveTrust"`
	Errors           []issueView    `json:"errors"`
	Warnings         []issueView    `json:"warnings"`
	Integrity        *integrityView `json:"integrity"`
}

type summaryView struct {
	Records  int            `json:"records"`
	Valid    int            `json:"valid"`
	Invalid  int            `json:"invalid"`
	Warnings int            `json:"warnings"`
	ByLevel  map[string]int `json:"byConformanceLevel"`
}

type reportView struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"documentId"`
	Results    []resultView `json:"results"`
	Warnings   []issueView  `json:"warnings"`
	Summary    summaryView  `json:"summary"`
}

type validateView struct {
	Passed bool       `json:"passed"`
	Report reportView `json:"report"`
}

// Validate posts a dump to /v1/validate and decodes the response.
func (h *Harness) Validate(t *testing.T, query string, dump any) validateView {
	t.Helper()

	body, err := json.Marshal(dump)
	if err != nil {
		t.Fatalf("failed to encode dump: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, h.URL()+"/v1/validate"+query, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token, err := h.AuthToken(); err != nil {
		t.Fatalf("failed to mint token: %v", err)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to POST /v1/validate: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for /v1/validate, got %d", resp.StatusCode)
	}

	var reply struct {
		Data validateView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("failed to decode validate response: %v", err)
	}
	return reply.Data
}

// resultFor finds a record's result by id.
func resultFor(t *testing.T, report reportView, recordID string) resultView {
	t.Helper()
	for _, res := range report.Results {
		if res.RecordID == recordID {
			return res
		}
	}
	t.Fatalf("no result for record %s in %+v", recordID, report.Results)
	return resultView{}
}

func hasIssue(issues []issueView, code string) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func sha256Hex(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// RunConformanceTests runs all conformance scenarios against the service.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("ConformanceLadder", h.testConformanceLadder)
	t.Run("TrustDowngrades", h.testTrustDowngrades)
	t.Run("DuplicateTargets", h.testDuplicateTargets)
	t.Run("ReportRetrieval", h.testReportRetrieval)
	t.Run("StrictMode", h.testStrictMode)
	t.Run("Authentication", h.testAuthentication)
}

// testHealthEndpoints tests the health check endpoints.
func (h *Harness) testHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(h.URL() + path)
		if err != nil {
			t.Fatalf("failed to GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

// ladderDump builds a document dump with one record per conformance
// level plus an unresolvable one.
func (h *Harness) ladderDump() map[string]any {
	const schemaURI = "https://schemas.example.com/record.json"
	h.SeedSchema(schemaURI, validate.SchemaPass)

	provenance := map[string]any{
		"Source":    "acme-extractor",
		"Created":   "2026-01-10T09:30:00Z",
		"Generator": "acme/2.1",
	}
	withProvenance := func(rec map[string]any) map[string]any {
		for k, v := range provenance {
			rec[k] = v
		}
		return rec
	}

	return map[string]any{
		"document": map[string]any{
			"id": "ladder-doc",
			"pages": []any{
				map[string]any{"mediaBox": []float64{0, 0, 612, 792}},
				map[string]any{},
			},
			"structElements":  []any{map[string]any{"id": "S1", "page": 1}},
			"annotations":     []any{map[string]any{"id": "A1", "page": 2}},
			"signatureRanges": []any{map[string]any{"offset": 0, "length": 4096}},
		},
		"records": []any{
			map[string]any{
				"ID": "none", "DataType": "Table", "Format": "JSON",
				"StructRef": "S-missing",
			},
			map[string]any{
				"ID": "basic", "DataType": "Table", "Format": "JSON",
				"StructRef": "S1",
			},
			map[string]any{
				"ID": "schema", "DataType": "Record", "Format": "JSON",
				"AnnotRef": "A1", "Schema": schemaURI,
				"DecodedValue": map[string]any{"name": "row"},
			},
			withProvenance(map[string]any{
				"ID": "provenance", "DataType": "Record", "Format": "JSON",
				"PageRef": 1, "Rect": []float64{72, 400, 540, 720},
				"Schema":       schemaURI,
				"DecodedValue": map[string]any{"name": "row"},
			}),
			withProvenance(map[string]any{
				"ID": "signed", "DataType": "Record", "Format": "JSON",
				"TrustLevel":   "Signed",
				"Schema":       schemaURI,
				"DecodedValue": map[string]any{"name": "row"},
				"Location":     map[string]any{"ByteOffset": 128, "ByteLength": 512},
			}),
			withProvenance(map[string]any{
				// Provenance without a passing schema cannot skip past Basic.
				"ID": "no-skip", "DataType": "Record", "Format": "JSON",
			}),
		},
	}
}

// testConformanceLadder verifies each record lands on its ladder level
// and that levels are never skipped.
func (h *Harness) testConformanceLadder(t *testing.T) {
	out := h.Validate(t, "", h.ladderDump())

	want := map[string]string{
		"none":       "None",
		"basic":      "Basic",
		"schema":     "Schema",
		"provenance": "Provenance",
		"signed":     "Signed",
		"no-skip":    "Basic",
	}
	for id, level := range want {
		res := resultFor(t, out.Report, id)
		if res.ConformanceLevel != level {
			t.Errorf("record %s: conformance %s, want %s", id, res.ConformanceLevel, level)
		}
	}

	if res := resultFor(t, out.Report, "none"); res.IsValid || !hasIssue(res.Errors, "UnresolvedBinding") {
		t.Errorf("unresolvable record must be invalid with UnresolvedBinding: %+v", res)
	}
	if out.Report.Summary.Records != 6 || out.Report.Summary.Invalid != 1 {
		t.Errorf("summary: %+v", out.Report.Summary)
	}
	if out.Report.Summary.ByLevel["Signed"] != 1 || out.Report.Summary.ByLevel["Basic"] != 2 {
		t.Errorf("by-level counts: %+v", out.Report.Summary.ByLevel)
	}
	if out.Passed {
		t.Error("verdict must fail with an invalid record present")
	}
}

// testTrustDowngrades verifies the two trust-capping rules: unverified
// content hashes and Signed declarations outside signature scope.
func (h *Harness) testTrustDowngrades(t *testing.T) {
	const uri = "https://cdn.example.com/dataset.csv"
	h.SeedContent(uri, []byte("served content"))

	dump := map[string]any{
		"document": map[string]any{
			"id":              "trust-doc",
			"pages":           []any{map[string]any{}},
			"signatureRanges": []any{map[string]any{"offset": 0, "length": 1024}},
		},
		"records": []any{
			map[string]any{
				"ID": "mismatch", "DataType": "Link", "Format": "JSON",
				"TrustLevel": "Author",
				"Generator":  "acme/2.1", "Created": "2026-01-10T09:30:00Z",
				"URI": uri,
				"Hash": map[string]any{
					"Algorithm": "SHA-256",
					"Value":     sha256Hex([]byte("declared content")),
				},
			},
			map[string]any{
				"ID": "out-of-scope", "DataType": "Value", "Format": "JSON",
				"TrustLevel": "Signed",
				"Location":   map[string]any{"ByteOffset": 4096, "ByteLength": 64},
			},
		},
	}

	out := h.Validate(t, "", dump)

	mismatch := resultFor(t, out.Report, "mismatch")
	if !mismatch.IsValid {
		t.Errorf("a hash mismatch must not invalidate the record: %+v", mismatch)
	}
	if !hasIssue(mismatch.Errors, "HashMismatch") || !hasIssue(mismatch.Warnings, "TrustDowngraded") {
		t.Errorf("mismatch issues: errors=%+v warnings=%+v", mismatch.Errors, mismatch.Warnings)
	}
	if mismatch.EffectiveTrust != "Enriched" {
		t.Errorf("effective trust = %s, want Enriched", mismatch.EffectiveTrust)
	}
	if mismatch.Integrity == nil || !mismatch.Integrity.Checked || mismatch.Integrity.HashVerified {
		t.Errorf("integrity verdict: %+v", mismatch.Integrity)
	}

	outOfScope := resultFor(t, out.Report, "out-of-scope")
	if outOfScope.EffectiveTrust != "Author" || !hasIssue(outOfScope.Warnings, "TrustDowngraded") {
		t.Errorf("out-of-scope verdict: %+v", outOfScope)
	}
}

// testDuplicateTargets verifies the document-level duplicate binding
// warning.
func (h *Harness) testDuplicateTargets(t *testing.T) {
	dump := map[string]any{
		"document": map[string]any{
			"id":             "dup-doc",
			"pages":          []any{map[string]any{}},
			"structElements": []any{map[string]any{"id": "S1", "page": 1}},
		},
		"records": []any{
			map[string]any{"ID": "first", "DataType": "Table", "Format": "JSON", "StructRef": "S1"},
			map[string]any{"ID": "second", "DataType": "Chart", "Format": "JSON", "StructRef": "S1"},
		},
	}

	out := h.Validate(t, "", dump)

	if !hasIssue(out.Report.Warnings, "DuplicateBindingTarget") {
		t.Errorf("expected a DuplicateBindingTarget warning: %+v", out.Report.Warnings)
	}
	for _, id := range []string{"first", "second"} {
		if res := resultFor(t, out.Report, id); !res.IsValid {
			t.Errorf("record %s must stay valid despite the shared target", id)
		}
	}
}

// testReportRetrieval verifies persisted reports are retrievable and
// listable through the API.
func (h *Harness) testReportRetrieval(t *testing.T) {
	out := h.Validate(t, "", map[string]any{
		"document": map[string]any{"id": "retrieval-doc", "pages": []any{map[string]any{}}},
		"records":  []any{map[string]any{"ID": "r1", "DataType": "Value", "Format": "JSON"}},
	})
	if out.Report.ID == "" {
		t.Fatal("validate response carries no report id")
	}

	var fetched struct {
		Data reportView `json:"data"`
	}
	h.getJSON(t, "/v1/reports/"+out.Report.ID, &fetched)
	if fetched.Data.ID != out.Report.ID || fetched.Data.DocumentID != "retrieval-doc" {
		t.Errorf("fetched report: %+v", fetched.Data)
	}

	var listed struct {
		Data struct {
			Reports []struct {
				ID         string `json:"id"`
				DocumentID string `json:"documentId"`
			} `json:"reports"`
		} `json:"data"`
	}
	h.getJSON(t, "/v1/reports?documentId=retrieval-doc", &listed)
	if len(listed.Data.Reports) != 1 || listed.Data.Reports[0].ID != out.Report.ID {
		t.Errorf("listing: %+v", listed.Data.Reports)
	}
}

// testStrictMode verifies ?strict=1 fails the verdict on warnings alone.
func (h *Harness) testStrictMode(t *testing.T) {
	dump := map[string]any{
		"document": map[string]any{"id": "strict-doc", "pages": []any{map[string]any{}}},
		"records":  []any{map[string]any{"ID": "cbor", "DataType": "Value", "Format": "CBOR"}},
	}

	if out := h.Validate(t, "", dump); !out.Passed {
		t.Errorf("warnings alone must pass in default mode: %+v", out.Report.Summary)
	}
	if out := h.Validate(t, "?strict=1", dump); out.Passed {
		t.Error("strict mode must fail on warnings")
	}
}

// testAuthentication verifies bearer-token enforcement when enabled.
func (h *Harness) testAuthentication(t *testing.T) {
	if h.jwtIssuer == "" {
		t.Skip("authentication disabled in this harness configuration")
	}

	resp, err := http.Post(h.URL()+"/v1/validate", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("failed to POST without token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401 without a token, got %d", resp.StatusCode)
	}
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (h *Harness) getJSON(t *testing.T, path string, into any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, h.URL()+path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token, err := h.AuthToken(); err != nil {
		t.Fatalf("failed to mint token: %v", err)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for %s, got %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("failed to decode %s response: %v", path, err)
	}
}
