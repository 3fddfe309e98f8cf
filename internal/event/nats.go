// internal/event/nats.go
// Package event publishes validation lifecycle events over NATS
// JetStream so downstream consumers can react to finished reports.
// Without a configured NATS URL the service runs with a no-op publisher.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// Publisher defines the event publishing operations of the service.
type Publisher interface {
	// PublishReportValidated announces a completed validation report.
	PublishReportValidated(ctx context.Context, report *model.DocumentReport) error
	// Close closes the publisher connection.
	Close() error
}

// noop is used when NATS is not configured or unavailable.
type noop struct{}

func (n *noop) Close() error { return nil }

func (n *noop) PublishReportValidated(ctx context.Context, report *model.DocumentReport) error {
	return nil
}

// natsPub is the NATS JetStream implementation of Publisher.
type natsPub struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to NATS at url and sets up the report stream.
// An empty url or a failed connection degrades to the no-op publisher
// so validation keeps working without event streaming.
func NewPublisher(url string) Publisher {
	if url == "" {
		return &noop{}
	}

	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return &noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	if err := initStreams(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	return &natsPub{nc: nc, js: js}
}

// initStreams creates the SDL_REPORTS stream consumed by report
// subscribers.
func initStreams(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      "SDL_REPORTS",
		Subjects:  []string{"sdl.reports.*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create SDL_REPORTS stream: %w", err)
	}
	return nil
}

// EventEnvelope is the standard wrapper for every published event.
type EventEnvelope struct {
	Type          string    `json:"type"`
	Version       string    `json:"version"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
	Payload       any       `json:"payload"`
}

// reportEvent is the payload of sdl.reports.validated. It carries the
// summary, not the full result set: consumers fetch the report by id.
type reportEvent struct {
	ReportID   string              `json:"reportId"`
	DocumentID string              `json:"documentId,omitempty"`
	Summary    model.ReportSummary `json:"summary"`
}

func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// PublishReportValidated implements Publisher.
func (p *natsPub) PublishReportValidated(ctx context.Context, report *model.DocumentReport) error {
	envelope := EventEnvelope{
		Type:          "sdl.reports.validated",
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		Payload: reportEvent{
			ReportID:   report.ID,
			DocumentID: report.DocumentID,
			Summary:    report.Summary,
		},
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	_, err = p.js.Publish("sdl.reports.validated", b)
	return err
}
