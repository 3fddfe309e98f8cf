// internal/graph/memory.go
// In-memory Document implementation. It backs tests, the conformance
// harness, and document dumps submitted to the validation service.
package graph

import (
	"fmt"
	"sync"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// MemoryDocument implements Document over plain maps.
// It is safe for concurrent readers once populated; population is not
// concurrent-safe with reads.
type MemoryDocument struct {
	mu       sync.RWMutex
	pages    []model.Rect // media boxes, index 0 is page 1
	elements map[string]*Object
	annots   map[string]*Object
}

// NewMemoryDocument creates an empty in-memory document.
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{
		elements: make(map[string]*Object),
		annots:   make(map[string]*Object),
	}
}

// AddPage appends a page with the given media box and returns its
// 1-based page number.
func (d *MemoryDocument) AddPage(mediaBox model.Rect) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages = append(d.pages, mediaBox)
	return len(d.pages)
}

// AddStructElement registers a structure element under the given id.
func (d *MemoryDocument) AddStructElement(id string, page int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[id] = &Object{Kind: KindStructElement, ID: id, Page: page}
}

// AddAnnotation registers an annotation under the given id.
func (d *MemoryDocument) AddAnnotation(id string, page int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.annots[id] = &Object{Kind: KindAnnotation, ID: id, Page: page}
}

// Resolve implements Document.
func (d *MemoryDocument) Resolve(kind Kind, id string) (*Object, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch kind {
	case KindStructElement:
		obj, ok := d.elements[id]
		return obj, ok
	case KindAnnotation:
		obj, ok := d.annots[id]
		return obj, ok
	default:
		return nil, false
	}
}

// PageCount implements Document.
func (d *MemoryDocument) PageCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pages)
}

// PageMediaBox implements Document.
func (d *MemoryDocument) PageMediaBox(page int) (model.Rect, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if page < 1 || page > len(d.pages) {
		return model.Rect{}, fmt.Errorf("page %d out of range [1, %d]", page, len(d.pages))
	}
	return d.pages[page-1], nil
}
