// internal/reportstore/store.go
// Package reportstore persists validation reports so callers can fetch
// them after the validation request completes. Both an in-memory and a
// PostgreSQL backend are provided.
package reportstore

import (
	"context"
	"errors"
	"time"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/metrics"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// Standard errors returned by the report store
var (
	ErrNotFound = errors.New("report not found")
	ErrConflict = errors.New("report already exists")
)

// Store persists and retrieves validation reports.
type Store interface {
	// SaveReport stores a report under report.ID.
	SaveReport(ctx context.Context, report *model.DocumentReport) error
	// GetReport returns the report with the given id, or ErrNotFound.
	GetReport(ctx context.Context, id string) (*model.DocumentReport, error)
	// ListReports returns report ids for a document, newest first.
	// documentID may be empty to list across documents.
	ListReports(ctx context.Context, documentID string, limit int) ([]ReportHead, error)
	// Close releases backing resources.
	Close()
}

// ReportHead is the listing view of a stored report.
type ReportHead struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Records     int       `json:"records"`
	Invalid     int       `json:"invalid"`
}

// instrumented decorates a Store with operation metrics.
type instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

// WithMetrics wraps a store so every operation is counted and timed.
func WithMetrics(next Store) Store {
	return &instrumented{next: next, metrics: metrics.NewMetrics()}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	s.metrics.ReportStoreTotal.WithLabelValues(op, status).Inc()
	s.metrics.ReportStoreDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (s *instrumented) SaveReport(ctx context.Context, report *model.DocumentReport) error {
	start := time.Now()
	err := s.next.SaveReport(ctx, report)
	s.observe("save", start, err)
	return err
}

func (s *instrumented) GetReport(ctx context.Context, id string) (*model.DocumentReport, error) {
	start := time.Now()
	report, err := s.next.GetReport(ctx, id)
	s.observe("get", start, err)
	return report, err
}

func (s *instrumented) ListReports(ctx context.Context, documentID string, limit int) ([]ReportHead, error) {
	start := time.Now()
	heads, err := s.next.ListReports(ctx, documentID, limit)
	s.observe("list", start, err)
	return heads, err
}

func (s *instrumented) Close() { s.next.Close() }
