// internal/reportstore/memory.go
// In-memory Store implementation for development and testing.
package reportstore

import (
	"context"
	"sort"
	"sync"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

type memory struct {
	mu      sync.RWMutex
	reports map[string]*model.DocumentReport
	order   []string // ids in insertion order
}

// NewMemory creates an empty in-memory report store.
func NewMemory() Store {
	return &memory{reports: make(map[string]*model.DocumentReport)}
}

func (m *memory) SaveReport(_ context.Context, report *model.DocumentReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reports[report.ID]; exists {
		return ErrConflict
	}
	clone := *report
	m.reports[report.ID] = &clone
	m.order = append(m.order, report.ID)
	return nil
}

func (m *memory) GetReport(_ context.Context, id string) (*model.DocumentReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (m *memory) ListReports(_ context.Context, documentID string, limit int) ([]ReportHead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var heads []ReportHead
	for _, id := range m.order {
		report := m.reports[id]
		if documentID != "" && report.DocumentID != documentID {
			continue
		}
		heads = append(heads, ReportHead{
			ID:          report.ID,
			DocumentID:  report.DocumentID,
			GeneratedAt: report.GeneratedAt,
			Records:     report.Summary.Records,
			Invalid:     report.Summary.Invalid,
		})
	}

	sort.SliceStable(heads, func(i, j int) bool {
		return heads[i].GeneratedAt.After(heads[j].GeneratedAt)
	})
	if limit > 0 && len(heads) > limit {
		heads = heads[:limit]
	}
	return heads, nil
}

func (m *memory) Close() {}
