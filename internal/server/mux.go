// internal/server/mux.go
// Package server implements the HTTP surface of the SDL validation
// service: document validation, report retrieval, and health endpoints,
// with optional JWT authentication.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/apierr"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/dump"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/event"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/jwks"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/metrics"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/reportstore"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/validate"
)

// ContextKey is used for context values to avoid collisions.
type ContextKey string

const (
	// ContextKeySubject stores the authenticated JWT subject.
	ContextKeySubject ContextKey = "subject"
	// ContextKeyCorrelationID stores the request correlation id.
	ContextKeyCorrelationID ContextKey = "correlationId"

	// DefaultListLimit bounds report listings without an explicit limit.
	DefaultListLimit = 25
	// MaxListLimit is the hard cap on report listings.
	MaxListLimit = 100
)

// Mux handles HTTP requests for the validation service.
type Mux struct {
	mux    *http.ServeMux
	store  reportstore.Store
	pub    event.Publisher
	engine *validate.Engine

	jwksClient  *jwks.Client
	jwtIssuer   string
	jwtAudience string

	metrics *metrics.Metrics
}

// NewMux creates the HTTP mux with all service endpoints. jwtIssuer
// empty disables authentication. jwksClient may be nil; one is derived
// from the issuer when auth is enabled.
func NewMux(store reportstore.Store, pub event.Publisher, engine *validate.Engine, jwksClient *jwks.Client, jwtIssuer, jwtAudience string) *http.ServeMux {
	if jwtIssuer != "" && jwksClient == nil {
		jwksClient = jwks.NewClient(fmt.Sprintf("%s/.well-known/jwks.json", jwtIssuer))
	}

	m := &Mux{
		mux:         http.NewServeMux(),
		store:       store,
		pub:         pub,
		engine:      engine,
		jwksClient:  jwksClient,
		jwtIssuer:   jwtIssuer,
		jwtAudience: jwtAudience,
		metrics:     metrics.NewMetrics(),
	}

	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	m.mux.HandleFunc("/v1/validate", m.method("POST", m.withMiddleware(m.handleValidate)))
	m.mux.HandleFunc("/v1/reports", m.method("GET", m.withMiddleware(m.handleListReports)))
	m.mux.HandleFunc("/v1/reports/", m.method("GET", m.withMiddleware(m.handleGetReport)))

	return m.mux
}

// method ensures the HTTP method matches the expected method.
func (m *Mux) method(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			m.writeErrorDef(w, apierr.New(apierr.SDL_BAD_REQUEST, "method not allowed", ""))
			return
		}
		h(w, r)
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withMiddleware applies correlation ids, authentication, request
// logging, and HTTP metrics to handlers.
func (m *Mux) withMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), ContextKeyCorrelationID, correlationID))
		w.Header().Set("X-Correlation-Id", correlationID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if m.authEnabled() {
			subject, err := m.validateJWT(r)
			if err != nil {
				var errorDef *apierr.Error
				if !errors.As(err, &errorDef) {
					errorDef = apierr.New(apierr.SDL_AUTHN, err.Error(), correlationID)
				}
				errorDef.CorrelationID = correlationID
				m.writeErrorDef(rec, errorDef)
				m.finishRequest(r, rec.status, start, correlationID, err)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), ContextKeySubject, subject))
		}

		h(rec, r)
		m.finishRequest(r, rec.status, start, correlationID, nil)
	}
}

func (m *Mux) authEnabled() bool {
	return m.jwtIssuer != "" && m.jwksClient != nil
}

// validateJWT validates the bearer token and extracts the subject.
func (m *Mux) validateJWT(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", apierr.New(apierr.SDL_AUTHN, "missing Authorization header", "")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apierr.New(apierr.SDL_AUTHN, "invalid Authorization header format", "")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := m.jwksClient.ValidateJWT(r.Context(), tokenString, m.jwtIssuer, m.jwtAudience)
	if err != nil {
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "expired"):
			return "", apierr.New(apierr.SDL_JWT_EXPIRED, "JWT token expired", "")
		case strings.Contains(errStr, "kid"):
			return "", apierr.New(apierr.SDL_JWT_MALFORMED, "missing or invalid kid in JWT header", "")
		default:
			return "", apierr.New(apierr.SDL_JWT_INVALID, fmt.Sprintf("failed to validate JWT: %v", err), "")
		}
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", apierr.New(apierr.SDL_JWT_INVALID, "missing or invalid sub claim", "")
	}
	return subject, nil
}

// writeSuccess writes a successful response
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

// writeErrorDef writes an error response using the API error taxonomy.
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *apierr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err})
}

// finishRequest records request logs and HTTP metrics.
func (m *Mux) finishRequest(r *http.Request, status int, start time.Time, correlationID string, err error) {
	duration := time.Since(start)

	m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Inc()
	m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Observe(duration.Seconds())

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("correlation_id", correlationID),
	}
	if subject, ok := r.Context().Value(ContextKeySubject).(string); ok && subject != "" {
		attrs = append(attrs, slog.String("subject", subject))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.LogAttrs(r.Context(), slog.LevelError, "request completed with error", attrs...)
		return
	}
	slog.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness health check requests. Readiness means
// the report store answers queries.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := m.store.GetReport(ctx, "health-check")
	if err != nil && !errors.Is(err, reportstore.ErrNotFound) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// validateResponse wraps a report with the overall pass verdict.
type validateResponse struct {
	Passed bool `json:"passed"`
	Report any  `json:"report"`
}

// handleValidate handles POST /v1/validate. The body is a document
// dump; the response is the persisted validation report. With
// ?strict=1 warnings also fail the overall verdict.
func (m *Mux) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("sdl-service").Start(r.Context(), "handleValidate")
	defer span.End()
	defer r.Body.Close()

	correlationID, _ := ctx.Value(ContextKeyCorrelationID).(string)

	d, err := dump.Parse(r.Body)
	if err != nil {
		span.SetStatus(codes.Error, "invalid dump")
		m.writeErrorDef(w, apierr.New(apierr.SDL_DUMP_INVALID, err.Error(), correlationID))
		return
	}

	span.SetAttributes(
		attribute.String("sdl.document_id", d.DocumentID),
		attribute.Int("sdl.records", len(d.Records)),
	)

	report := m.engine.WithScope(d.Scope).ValidateDocument(ctx, d.Doc, d.Records)

	// Records whose dictionaries never decoded get a malformed-record
	// verdict instead of the placeholder's missing-key noise.
	if len(d.DecodeErrors) > 0 {
		for i, decErr := range d.DecodeErrors {
			report.Results[i].Errors = []issue.Issue{
				issue.New(issue.MalformedRecord, "", "record dictionary could not be decoded: %v", decErr),
			}
			report.Results[i].Warnings = nil
			report.Results[i].Valid = false
		}
		report.Summarize()
	}

	report.ID = ulid.Make().String()
	report.DocumentID = d.DocumentID

	if err := m.store.SaveReport(ctx, report); err != nil {
		span.SetStatus(codes.Error, "save failed")
		m.writeErrorDef(w, apierr.New(apierr.SDL_INTERNAL, "failed to persist report", correlationID))
		return
	}

	if err := m.pub.PublishReportValidated(ctx, report); err != nil {
		// Event streaming is best-effort; the report is already persisted.
		slog.Warn("failed to publish report event", "report_id", report.ID, "error", err)
	}

	passed := report.Summary.Invalid == 0
	if r.URL.Query().Get("strict") == "1" && report.Summary.Warnings > 0 {
		passed = false
	}

	m.writeSuccess(w, http.StatusOK, validateResponse{Passed: passed, Report: report})
}

// handleGetReport handles GET /v1/reports/{id}.
func (m *Mux) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID, _ := ctx.Value(ContextKeyCorrelationID).(string)

	id := strings.TrimPrefix(r.URL.Path, "/v1/reports/")
	if id == "" || strings.Contains(id, "/") {
		m.writeErrorDef(w, apierr.New(apierr.SDL_BAD_REQUEST, "report id is required", correlationID))
		return
	}

	report, err := m.store.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, reportstore.ErrNotFound) {
			m.writeErrorDef(w, apierr.New(apierr.SDL_NOT_FOUND, "report not found", correlationID))
			return
		}
		m.writeErrorDef(w, apierr.New(apierr.SDL_INTERNAL, "failed to load report", correlationID))
		return
	}

	m.writeSuccess(w, http.StatusOK, report)
}

// handleListReports handles GET /v1/reports with optional documentId
// and limit query parameters.
func (m *Mux) handleListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID, _ := ctx.Value(ContextKeyCorrelationID).(string)

	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			m.writeErrorDef(w, apierr.New(apierr.SDL_BAD_REQUEST, "limit must be a positive integer", correlationID))
			return
		}
		if n > MaxListLimit {
			n = MaxListLimit
		}
		limit = n
	}

	heads, err := m.store.ListReports(ctx, r.URL.Query().Get("documentId"), limit)
	if err != nil {
		m.writeErrorDef(w, apierr.New(apierr.SDL_INTERNAL, "failed to list reports", correlationID))
		return
	}
	if heads == nil {
		heads = []reportstore.ReportHead{}
	}

	m.writeSuccess(w, http.StatusOK, map[string]any{"reports": heads})
}
