// internal/server/mux_test.go
// Package server provides unit tests for the HTTP handlers and routing.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/jwks"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/reportstore"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/validate"
)

// mockPublisher implements event.Publisher for testing.
type mockPublisher struct {
	published []*model.DocumentReport
}

func (m *mockPublisher) PublishReportValidated(_ context.Context, report *model.DocumentReport) error {
	m.published = append(m.published, report)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func newTestMux(t *testing.T) (*http.ServeMux, reportstore.Store, *mockPublisher) {
	t.Helper()
	store := reportstore.NewMemory()
	pub := &mockPublisher{}
	engine := validate.New(nil, nil, nil, validate.Options{Workers: 2})
	return NewMux(store, pub, engine, nil, "", ""), store, pub
}

const validateBody = `{
  "document": {
    "id": "doc-7",
    "pages": [{"mediaBox": [0, 0, 612, 792]}],
    "structElements": [{"id": "S1", "page": 1}]
  },
  "records": [
    {"ID": "ok", "DataType": "Value", "Format": "JSON", "StructRef": "S1"},
    {"ID": "warn", "DataType": "Value", "Format": "CBOR"},
    {"ID": "bad", "DataType": "Nope", "Format": "JSON"}
  ]
}`

type validateReply struct {
	Data struct {
		Passed bool                 `json:"passed"`
		Report model.DocumentReport `json:"report"`
	} `json:"data"`
}

func postValidate(t *testing.T, mux *http.ServeMux, target, body string) (*httptest.ResponseRecorder, validateReply) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var reply validateReply
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), &reply); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
		}
	}
	return rr, reply
}

func TestHealthzEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rr.Code, rr.Body.String())
	}
}

func TestReadyzEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rr.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	mux, store, pub := newTestMux(t)

	rr, reply := postValidate(t, mux, "/v1/validate", validateBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	report := reply.Data.Report
	if report.ID == "" || report.DocumentID != "doc-7" {
		t.Fatalf("report identity: %+v", report)
	}
	if report.Summary.Records != 3 || report.Summary.Valid != 2 || report.Summary.Invalid != 1 {
		t.Fatalf("summary: %+v", report.Summary)
	}
	if reply.Data.Passed {
		t.Fatal("an invalid record must fail the overall verdict")
	}

	// The report is persisted and retrievable.
	stored, err := store.GetReport(context.Background(), report.ID)
	if err != nil || stored.DocumentID != "doc-7" {
		t.Fatalf("stored report: %+v, %v", stored, err)
	}

	if len(pub.published) != 1 || pub.published[0].ID != report.ID {
		t.Fatalf("event not published: %+v", pub.published)
	}

	if rr.Header().Get("X-Correlation-Id") == "" {
		t.Fatal("correlation id header missing")
	}
}

func TestValidateStrictMode(t *testing.T) {
	mux, _, _ := newTestMux(t)

	// Only the CBOR record: valid, but it carries a warning.
	body := `{
	  "document": {"id": "doc-8", "pages": [{}]},
	  "records": [{"ID": "warn", "DataType": "Value", "Format": "CBOR"}]
	}`

	_, reply := postValidate(t, mux, "/v1/validate", body)
	if !reply.Data.Passed {
		t.Fatalf("warnings alone must pass in default mode: %+v", reply.Data.Report.Summary)
	}

	_, reply = postValidate(t, mux, "/v1/validate?strict=1", body)
	if reply.Data.Passed {
		t.Fatal("strict mode must fail on warnings")
	}
}

func TestValidateRejectsBadDump(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr, _ := postValidate(t, mux, "/v1/validate", "not json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestValidateMethodNotAllowed(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/validate", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetReportNotFound(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reports/01NOPE", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestListReports(t *testing.T) {
	mux, _, _ := newTestMux(t)

	if rr, _ := postValidate(t, mux, "/v1/validate", validateBody); rr.Code != http.StatusOK {
		t.Fatalf("seed validate failed: %d", rr.Code)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reports?documentId=doc-7", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var reply struct {
		Data struct {
			Reports []reportstore.ReportHead `json:"reports"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &reply); err != nil {
		t.Fatal(err)
	}
	if len(reply.Data.Reports) != 1 || reply.Data.Reports[0].DocumentID != "doc-7" {
		t.Fatalf("reports = %+v", reply.Data.Reports)
	}
}

func TestAuthRequired(t *testing.T) {
	store := reportstore.NewMemory()
	engine := validate.New(nil, nil, nil, validate.Options{Workers: 2})
	mux := NewMux(store, &mockPublisher{}, engine, jwks.NewTestClient(), "test-issuer", "test-audience")

	// No token: rejected.
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(validateBody)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}

	// A token with matching claims passes the test-mode client.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "test-issuer",
		"aud": "test-audience",
		"sub": "caller-1",
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(validateBody))
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	// Health endpoints stay open.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz behind auth: %d", rr.Code)
	}
}
