// internal/reportstore/postgres.go
// PostgreSQL Store implementation for production deployments.
package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

type postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to the database, initializes the schema, and
// returns a persistent report store.
func NewPostgres(dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool}, nil
}

func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS validation_reports (
		    id TEXT PRIMARY KEY,
		    document_id TEXT NOT NULL DEFAULT '',
		    generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		    records INTEGER NOT NULL,
		    invalid INTEGER NOT NULL,
		    report JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_validation_reports_document
		    ON validation_reports(document_id, generated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_validation_reports_generated_at
		    ON validation_reports(generated_at DESC);
	`
	_, err := db.Exec(ctx, schema)
	return err
}

func (p *postgres) Close() {
	p.db.Close()
}

func (p *postgres) SaveReport(ctx context.Context, report *model.DocumentReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO validation_reports (id, document_id, generated_at, records, invalid, report)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = p.db.Exec(ctx, query,
		report.ID, report.DocumentID, report.GeneratedAt,
		report.Summary.Records, report.Summary.Invalid, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (p *postgres) GetReport(ctx context.Context, id string) (*model.DocumentReport, error) {
	query := `SELECT report FROM validation_reports WHERE id = $1`

	var payload []byte
	if err := p.db.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	var report model.DocumentReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

func (p *postgres) ListReports(ctx context.Context, documentID string, limit int) ([]ReportHead, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, document_id, generated_at, records, invalid
		FROM validation_reports
		WHERE ($1 = '' OR document_id = $1)
		ORDER BY generated_at DESC
		LIMIT $2
	`
	rows, err := p.db.Query(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var heads []ReportHead
	for rows.Next() {
		var h ReportHead
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.GeneratedAt, &h.Records, &h.Invalid); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		heads = append(heads, h)
	}
	return heads, rows.Err()
}
