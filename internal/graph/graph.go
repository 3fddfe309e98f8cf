// internal/graph/graph.go
// Package graph exposes the document object graph the validation engine
// consumes from the external document reader. The graph is read-only for
// the duration of a validation run.
package graph

import (
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// Kind discriminates the addressable object kinds in the graph.
type Kind string

const (
	KindStructElement Kind = "structElement"
	KindAnnotation    Kind = "annotation"
)

// Object is a structurally addressable element of the document.
// Presence in the graph is purely structural: objects inside removed or
// optional content groups still resolve.
type Object struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
	// Page is the 1-based page the object appears on, 0 when unknown.
	Page int `json:"page,omitempty"`
}

// Document is the object-graph view of one parsed document.
type Document interface {
	// Resolve looks up an object by kind and id. The second return is
	// false when no object of that kind exists under that id.
	Resolve(kind Kind, id string) (*Object, bool)
	// PageCount returns the number of pages in the document.
	PageCount() int
	// PageMediaBox returns the media box of the given 1-based page.
	PageMediaBox(page int) (model.Rect, error)
}
