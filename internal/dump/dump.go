// Package dump decodes the document-dump interchange format: a JSON
// description of a document's object graph (pages, structure elements,
// annotations, signature byte ranges) together with the raw SDL record
// dictionaries extracted from it.
package dump

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/graph"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/sigscope"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/validate"
)

// maxDumpBytes bounds the size of an accepted dump.
const maxDumpBytes = 128 << 20

type rawDump struct {
	Document rawDocument      `json:"document"`
	Records  []map[string]any `json:"records"`
}

type rawDocument struct {
	ID              string               `json:"id"`
	Pages           []rawPage            `json:"pages"`
	StructElements  []rawObject          `json:"structElements"`
	Annotations     []rawObject          `json:"annotations"`
	SignatureRanges []sigscope.ByteRange `json:"signatureRanges"`
}

type rawPage struct {
	MediaBox []float64 `json:"mediaBox"`
}

type rawObject struct {
	ID   string `json:"id"`
	Page int    `json:"page"`
}

// Dump is a decoded document dump ready for validation.
type Dump struct {
	DocumentID string
	Doc        *graph.MemoryDocument
	Records    []*model.DataDef
	// DecodeErrors maps record index to the error that prevented the
	// dictionary from decoding. Such records still occupy their slot so
	// report indices line up with the dump.
	DecodeErrors map[int]error
	Scope        *sigscope.Scope
}

// Parse reads and decodes a document dump.
func Parse(r io.Reader) (*Dump, error) {
	var raw rawDump
	dec := json.NewDecoder(io.LimitReader(r, maxDumpBytes))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return fromRaw(&raw)
}

func fromRaw(raw *rawDump) (*Dump, error) {
	doc := graph.NewMemoryDocument()

	for i, p := range raw.Document.Pages {
		box := model.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
		switch len(p.MediaBox) {
		case 0:
			// default US Letter media box
		case 4:
			box = model.Rect{X0: p.MediaBox[0], Y0: p.MediaBox[1], X1: p.MediaBox[2], Y1: p.MediaBox[3]}
		default:
			return nil, fmt.Errorf("page %d: mediaBox must have 4 numbers, got %d", i+1, len(p.MediaBox))
		}
		doc.AddPage(box)
	}

	pageCount := doc.PageCount()
	for _, se := range raw.Document.StructElements {
		if se.ID == "" {
			return nil, fmt.Errorf("struct element with empty id")
		}
		if se.Page < 0 || se.Page > pageCount {
			return nil, fmt.Errorf("struct element %s: page %d out of range", se.ID, se.Page)
		}
		doc.AddStructElement(se.ID, se.Page)
	}
	for _, an := range raw.Document.Annotations {
		if an.ID == "" {
			return nil, fmt.Errorf("annotation with empty id")
		}
		if an.Page < 1 || an.Page > pageCount {
			return nil, fmt.Errorf("annotation %s: page %d out of range", an.ID, an.Page)
		}
		doc.AddAnnotation(an.ID, an.Page)
	}

	scope, err := sigscope.NewScope(raw.Document.SignatureRanges)
	if err != nil {
		return nil, fmt.Errorf("signature ranges: %w", err)
	}

	records, failed := validate.DecodeRecords(raw.Records)

	return &Dump{
		DocumentID:   raw.Document.ID,
		Doc:          doc,
		Records:      records,
		DecodeErrors: failed,
		Scope:        scope,
	}, nil
}
