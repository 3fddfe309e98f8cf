// internal/fetch/fetch.go
// Package fetch provides the content-fetch collaborator used by the
// link-integrity checker. A fetcher returns the bytes addressed by a URI
// or signals that the target is unreachable; timeouts and transport
// failures are all reported as ErrUnreachable.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUnreachable signals that the addressed content could not be
// retrieved. The integrity checker treats every fetch failure identically.
var ErrUnreachable = errors.New("unreachable")

// Fetcher retrieves the content addressed by a URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// maxFetchBytes caps how much content a fetcher will read. Link targets
// are hashed whole, so a truncated read would always mismatch anyway.
const maxFetchBytes = 64 << 20

// HTTPFetcher fetches http and https URIs with a bounded timeout.
type HTTPFetcher struct {
	hc *http.Client
}

// NewHTTPFetcher creates an HTTP fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		hc: &http.Client{Timeout: timeout},
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return body, nil
}

// Router dispatches fetches by URI scheme. Unroutable schemes are
// unreachable rather than errors: reachability is advisory, not fatal.
type Router struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewRouter creates an empty scheme router.
func NewRouter() *Router {
	return &Router{fetchers: make(map[string]Fetcher)}
}

// Register routes a URI scheme (e.g. "https", "s3") to a fetcher.
func (r *Router) Register(scheme string, f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[strings.ToLower(scheme)] = f
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	r.mu.RLock()
	f, ok := r.fetchers[strings.ToLower(u.Scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for scheme %q", ErrUnreachable, u.Scheme)
	}
	return f.Fetch(ctx, uri)
}

// Memory is an in-memory fetcher for tests and the conformance harness.
// URIs not present in the map are unreachable.
type Memory struct {
	mu      sync.RWMutex
	content map[string][]byte
}

// NewMemory creates an empty in-memory fetcher.
func NewMemory() *Memory {
	return &Memory{content: make(map[string][]byte)}
}

// Put stores content under a URI.
func (m *Memory) Put(uri string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[uri] = body
}

// Fetch implements Fetcher.
func (m *Memory) Fetch(ctx context.Context, uri string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.content[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, uri)
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}
