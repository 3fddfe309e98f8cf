package model

import (
	"testing"
	"time"
)

func TestFromDictFullRecord(t *testing.T) {
	raw := map[string]any{
		"DataType":   "Table",
		"Format":     "JSON",
		"TrustLevel": "Enriched",
		"Schema":     "https://schemas.example.com/table.json",
		"Source":     "page 7",
		"Created":    "2026-03-14T09:00:00Z",
		"Generator":  "extractor/1.4",
		"Confidence": 0.92,
		"PageRef":    float64(7),
		"Rect":       []any{72.0, 400.0, 540.0, 720.0},
		"Location": map[string]any{
			"ObjectID":   "14 0",
			"ByteOffset": float64(2048),
			"ByteLength": float64(512),
		},
	}

	rec, err := FromDict("rec-1", raw)
	if err != nil {
		t.Fatal(err)
	}

	if rec.DataType != TypeTable || rec.Format != FormatJSON || rec.TrustLevel != TrustEnriched {
		t.Fatalf("enum fields decoded wrong: %+v", rec)
	}
	if rec.SchemaURI != "https://schemas.example.com/table.json" {
		t.Fatalf("SchemaURI = %q", rec.SchemaURI)
	}
	if rec.Confidence == nil || *rec.Confidence != 0.92 {
		t.Fatalf("Confidence = %v", rec.Confidence)
	}
	want := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if rec.Created == nil || !rec.Created.Equal(want) {
		t.Fatalf("Created = %v", rec.Created)
	}
	if rec.Binding.Kind != BindPage || rec.Binding.Page != 7 {
		t.Fatalf("Binding = %+v", rec.Binding)
	}
	if rec.Binding.Rect == nil || *rec.Binding.Rect != (Rect{X0: 72, Y0: 400, X1: 540, Y1: 720}) {
		t.Fatalf("Rect = %+v", rec.Binding.Rect)
	}
	if rec.Location.ObjectID != "14 0" || rec.Location.ByteOffset != 2048 || rec.Location.ByteLength != 512 {
		t.Fatalf("Location = %+v", rec.Location)
	}
}

func TestFromDictBindingPrecedence(t *testing.T) {
	// StructRef wins over AnnotRef and PageRef when several are present.
	rec, err := FromDict("r", map[string]any{
		"DataType": "Value",
		"Format":   "JSON",
		"StructRef": "S3",
		"AnnotRef":  "A1",
		"PageRef":   float64(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Binding.Kind != BindStruct || rec.Binding.TargetID != "S3" {
		t.Fatalf("Binding = %+v", rec.Binding)
	}

	rec, err = FromDict("r", map[string]any{
		"DataType": "Value",
		"Format":   "JSON",
		"AnnotRef": "A1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Binding.Kind != BindAnnot || rec.Binding.TargetID != "A1" {
		t.Fatalf("Binding = %+v", rec.Binding)
	}

	// No binding key at all means document level.
	rec, err = FromDict("r", map[string]any{"DataType": "Value", "Format": "JSON"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Binding.Kind != BindDocument {
		t.Fatalf("Binding = %+v", rec.Binding)
	}
}

func TestFromDictUnknownEnumsRetained(t *testing.T) {
	rec, err := FromDict("r", map[string]any{
		"DataType":   "Spreadsheet",
		"Format":     "JSON",
		"TrustLevel": "Verified",
	})
	if err != nil {
		t.Fatalf("unknown enum values must decode, not fail: %v", err)
	}
	if string(rec.DataType) != "Spreadsheet" || string(rec.TrustLevel) != "Verified" {
		t.Fatalf("enum values must be retained verbatim: %+v", rec)
	}
}

func TestFromDictLinkMeta(t *testing.T) {
	rec, err := FromDict("r", map[string]any{
		"DataType": "Link",
		"Format":   "JSON",
		"URI":      "https://example.com/data.csv",
		"PID":      "doi:10.1000/182",
		"LinkID":   "linkid:abc",
		"Title":    "Quarterly data",
		"RefDate":  "2026-01-02",
		"Status":   "Active",
		"Hash": map[string]any{
			"Algorithm": "SHA-256",
			"Value":     "deadbeef",
		},
		"AltURIs": []any{"https://mirror.example.com/data.csv"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsLink() {
		t.Fatal("expected a link record")
	}
	l := rec.Link
	if l.URI == "" || l.PersistentID != "doi:10.1000/182" || l.LinkID != "linkid:abc" {
		t.Fatalf("identifiers = %+v", l)
	}
	if l.Status != StatusActive {
		t.Fatalf("Status = %q", l.Status)
	}
	if l.Hash == nil || l.Hash.Algorithm != SHA256 || l.Hash.Value != "deadbeef" {
		t.Fatalf("Hash = %+v", l.Hash)
	}
	if len(l.AltURIs) != 1 {
		t.Fatalf("AltURIs = %v", l.AltURIs)
	}
}

func TestFromDictMalformed(t *testing.T) {
	cases := []map[string]any{
		nil,
		{"DataType": "Table", "Format": "JSON", "Created": "not-a-date"},
		{"DataType": "Table", "Format": "JSON", "Confidence": "high"},
		{"DataType": "Table", "Format": "JSON", "PageRef": float64(1), "Rect": []any{1.0, 2.0}},
		{"DataType": "Link", "Format": "JSON", "Hash": "sha"},
		{"DataType": "Link", "Format": "JSON", "AltURIs": []any{1.0}},
	}
	for i, raw := range cases {
		if _, err := FromDict("r", raw); err == nil {
			t.Errorf("case %d: expected a decode error", i)
		}
	}
}

func TestFromDictDataPayload(t *testing.T) {
	// Base64 payloads decode; non-base64 strings pass through literally.
	rec, err := FromDict("r", map[string]any{
		"DataType": "Value",
		"Format":   "JSON",
		"Data":     "aGVsbG8=",
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(rec.RawData) != "hello" {
		t.Fatalf("RawData = %q", rec.RawData)
	}

	rec, err = FromDict("r", map[string]any{
		"DataType": "Value",
		"Format":   "JSON",
		"Data":     "{not base64}",
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(rec.RawData) != "{not base64}" {
		t.Fatalf("RawData = %q", rec.RawData)
	}
}
