// Package schemacheck provides JSON schema validation for decoded record
// values. Schemas are retrieved by URI, compiled once, and cached in
// memory and on disk.
package schemacheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/metrics"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/validate"
)

// maxSchemaBytes bounds how much of a schema document is read.
const maxSchemaBytes = 4 << 20

// Checker retrieves, compiles, and caches JSON schemas and validates
// decoded values against them. Safe for concurrent use.
type Checker struct {
	mu       sync.RWMutex
	compiled map[string]*gojsonschema.Schema

	cacheDir string
	client   *http.Client
	metrics  *metrics.Metrics
}

// New creates a schema checker. cacheDir may be empty to disable the
// on-disk schema cache.
func New(cacheDir string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		compiled: make(map[string]*gojsonschema.Schema),
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: timeout},
		metrics:  metrics.NewMetrics(),
	}
}

// Check validates value against the schema at schemaURI. Retrieval or
// compilation failures yield SchemaUnreachable rather than an error:
// the conformance ladder treats an unverifiable schema claim as a
// failed gate, not a broken record.
func (c *Checker) Check(ctx context.Context, schemaURI string, value any) validate.SchemaOutcome {
	start := time.Now()
	outcome := c.check(ctx, schemaURI, value)

	label := "unreachable"
	switch outcome {
	case validate.SchemaPass:
		label = "pass"
	case validate.SchemaFail:
		label = "fail"
	}
	c.metrics.SchemaCheckTotal.WithLabelValues(label).Inc()
	c.metrics.SchemaCheckDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	return outcome
}

func (c *Checker) check(ctx context.Context, schemaURI string, value any) validate.SchemaOutcome {
	schema, err := c.schema(ctx, schemaURI)
	if err != nil {
		return validate.SchemaUnreachable
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		// The value could not be interpreted as a JSON document at all.
		return validate.SchemaFail
	}
	if !result.Valid() {
		return validate.SchemaFail
	}
	return validate.SchemaPass
}

// schema returns the compiled schema for a URI, loading and compiling
// it on first use.
func (c *Checker) schema(ctx context.Context, schemaURI string) (*gojsonschema.Schema, error) {
	c.mu.RLock()
	schema, ok := c.compiled[schemaURI]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	raw, err := c.retrieve(ctx, schemaURI)
	if err != nil {
		return nil, err
	}

	schema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid schema at %s: %w", schemaURI, err)
	}

	c.mu.Lock()
	c.compiled[schemaURI] = schema
	c.mu.Unlock()
	return schema, nil
}

// retrieve loads schema bytes from the disk cache, a local file URI, or
// over HTTP, in that order of preference.
func (c *Checker) retrieve(ctx context.Context, schemaURI string) ([]byte, error) {
	if raw, err := c.loadFromCache(schemaURI); err == nil {
		return raw, nil
	}

	u, err := url.Parse(schemaURI)
	if err != nil {
		return nil, err
	}

	var raw []byte
	switch u.Scheme {
	case "file":
		raw, err = os.ReadFile(u.Path)
	case "http", "https":
		raw, err = c.fetchHTTP(ctx, schemaURI)
	default:
		return nil, fmt.Errorf("unsupported schema URI scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	c.saveToCache(schemaURI, raw)
	return raw, nil
}

func (c *Checker) fetchHTTP(ctx context.Context, schemaURI string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, schemaURI, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/schema+json, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schema fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
}

// cachePath derives a stable on-disk name from the schema URI.
func (c *Checker) cachePath(schemaURI string) string {
	sum := sha256.Sum256([]byte(schemaURI))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:16])+".json")
}

func (c *Checker) loadFromCache(schemaURI string) ([]byte, error) {
	if c.cacheDir == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(c.cachePath(schemaURI))
}

func (c *Checker) saveToCache(schemaURI string, raw []byte) {
	if c.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return // cache failures are non-fatal
	}
	_ = os.WriteFile(c.cachePath(schemaURI), raw, 0o644)
}
