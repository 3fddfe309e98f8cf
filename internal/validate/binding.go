// internal/validate/binding.go
// Binding resolution: confirms a record's declared binding variant points
// at an existing, structurally addressable element of the document object
// graph. Never mutates the graph.
package validate

import (
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/graph"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// RectPolicy controls how an out-of-bounds PageRef rect is treated.
type RectPolicy string

const (
	// RectPolicyError treats an out-of-bounds rect as a hard error: a
	// declared visual region outside the page indicates a mismatch between
	// the record and reality. This is the default.
	RectPolicyError RectPolicy = "error"
	// RectPolicyClamp clips the rect to the media box and records a
	// warning instead.
	RectPolicyClamp RectPolicy = "clamp"
)

// ResolveBinding resolves a binding against the document graph and
// returns the resolved target plus any issues. A nil target means the
// binding did not resolve.
func ResolveBinding(doc graph.Document, b model.Binding, policy RectPolicy) (*model.TargetRef, []issue.Issue) {
	switch b.Kind {
	case model.BindDocument:
		// Always resolves to the document root; no further checks.
		return &model.TargetRef{Kind: "document"}, nil

	case model.BindStruct:
		return resolveObject(doc, graph.KindStructElement, b.TargetID, "structElement")

	case model.BindAnnot:
		return resolveObject(doc, graph.KindAnnotation, b.TargetID, "annotation")

	case model.BindPage:
		return resolvePage(doc, b, policy)

	default:
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding",
			"unrecognized binding variant %q", string(b.Kind))}
	}
}

func resolveObject(doc graph.Document, kind graph.Kind, id, kindName string) (*model.TargetRef, []issue.Issue) {
	if id == "" {
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding",
			"%s binding without a target id", kindName)}
	}
	obj, ok := doc.Resolve(kind, id)
	if !ok {
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding",
			"no %s with id %q in the document", kindName, id)}
	}
	return &model.TargetRef{Kind: kindName, ID: obj.ID, Page: obj.Page}, nil
}

func resolvePage(doc graph.Document, b model.Binding, policy RectPolicy) (*model.TargetRef, []issue.Issue) {
	var issues []issue.Issue

	if b.Page < 1 || b.Page > doc.PageCount() {
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding.page",
			"page %d out of range [1, %d]", b.Page, doc.PageCount())}
	}

	if b.Rect == nil {
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding.rect",
			"page binding requires a rect")}
	}
	if !b.Rect.Ordered() {
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding.rect",
			"rect [%g %g %g %g] violates the ordering invariant x0<x1, y0<y1",
			b.Rect.X0, b.Rect.Y0, b.Rect.X1, b.Rect.Y1)}
	}

	mediaBox, err := doc.PageMediaBox(b.Page)
	if err != nil {
		return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding.page",
			"media box for page %d: %v", b.Page, err)}
	}

	if !b.Rect.Within(mediaBox) {
		switch policy {
		case RectPolicyClamp:
			clamped := b.Rect.Clamp(mediaBox)
			if !clamped.Ordered() {
				// Clamping collapsed the rect entirely; nothing of the declared
				// region lies on the page.
				return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding.rect",
					"rect lies entirely outside the page %d media box", b.Page)}
			}
			issues = append(issues, issue.New(issue.RectClamped, "binding.rect",
				"rect clipped to media box of page %d", b.Page))
		default:
			// Out-of-bounds is an error, not a warning: clipping is not
			// silently applied.
			return nil, []issue.Issue{issue.New(issue.UnresolvedBinding, "binding.rect",
				"rect [%g %g %g %g] exceeds the media box of page %d",
				b.Rect.X0, b.Rect.Y0, b.Rect.X1, b.Rect.Y1, b.Page)}
		}
	}

	return &model.TargetRef{Kind: "page", Page: b.Page}, issues
}
