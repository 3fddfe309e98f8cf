// internal/model/decode.go
// Decoding of persisted record dictionaries into DataDef values.
// The persisted encoding (produced by the external writer) uses named keys
// corresponding 1:1 to the model attributes: DataType, Format, TrustLevel,
// StructRef, AnnotRef, PageRef, Rect, Schema, Source, Created, Generator,
// Confidence, and the LinkMeta keys URI, PID, LinkID, Title, RefDate,
// Hash, AltURIs, Status.
//
// Decoding is deliberately permissive about enumeration values: unknown
// DataType or TrustLevel names are retained verbatim so the shape checker
// reports them as structural issues instead of the decoder silently
// dropping the record.
package model

import (
	"encoding/base64"
	"fmt"
	"time"
)

// FromDict decodes a raw record dictionary into a DataDef.
// It returns an error only when the dictionary cannot be interpreted at
// all (wrong value shapes); rule violations are left for the validator.
func FromDict(id string, raw map[string]any) (*DataDef, error) {
	if raw == nil {
		return nil, fmt.Errorf("record %s: nil dictionary", id)
	}

	d := &DataDef{
		ID:        id,
		DataType:  DataType(stringKey(raw, "DataType")),
		Format:    DataFormat(stringKey(raw, "Format")),
		SchemaURI: stringKey(raw, "Schema"),
		Source:    stringKey(raw, "Source"),
		Generator: stringKey(raw, "Generator"),
	}

	if tl := stringKey(raw, "TrustLevel"); tl != "" {
		d.TrustLevel = TrustLevel(tl)
	}

	if v, ok := raw["Confidence"]; ok {
		f, err := floatValue(v)
		if err != nil {
			return nil, fmt.Errorf("record %s: Confidence: %w", id, err)
		}
		d.Confidence = &f
	}

	if v, ok := raw["Created"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("record %s: Created is not a string", id)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("record %s: Created: %w", id, err)
		}
		d.Created = &t
	}

	binding, err := decodeBinding(raw)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}
	d.Binding = binding

	if v, ok := raw["Data"]; ok {
		switch data := v.(type) {
		case string:
			// Raw payloads arrive base64-encoded in dumps; fall back to the
			// literal bytes for payloads written as plain text.
			if b, err := base64.StdEncoding.DecodeString(data); err == nil {
				d.RawData = b
			} else {
				d.RawData = []byte(data)
			}
		case []byte:
			d.RawData = data
		}
	}

	if v, ok := raw["DecodedValue"]; ok {
		d.DecodedValue = v
	}

	if loc, ok := raw["Location"].(map[string]any); ok {
		d.Location.ObjectID = stringKey(loc, "ObjectID")
		if off, err := intValue(loc["ByteOffset"]); err == nil {
			d.Location.ByteOffset = off
		}
		if n, err := intValue(loc["ByteLength"]); err == nil {
			d.Location.ByteLength = n
		}
	}

	if d.DataType == TypeLink {
		link, err := decodeLinkMeta(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		d.Link = link
	}

	return d, nil
}

// decodeBinding selects the binding variant from the mutually exclusive
// binding keys. When several are present the most specific wins, matching
// the discovery order of the reference reader: StructRef, AnnotRef, PageRef.
func decodeBinding(raw map[string]any) (Binding, error) {
	if ref := stringKey(raw, "StructRef"); ref != "" {
		return Binding{Kind: BindStruct, TargetID: ref}, nil
	}
	if ref := stringKey(raw, "AnnotRef"); ref != "" {
		return Binding{Kind: BindAnnot, TargetID: ref}, nil
	}
	if v, ok := raw["PageRef"]; ok {
		page, err := intValue(v)
		if err != nil {
			return Binding{}, fmt.Errorf("PageRef: %w", err)
		}
		b := Binding{Kind: BindPage, Page: int(page)}
		if rv, ok := raw["Rect"]; ok {
			rect, err := decodeRect(rv)
			if err != nil {
				return Binding{}, err
			}
			b.Rect = &rect
		}
		return b, nil
	}
	return Binding{Kind: BindDocument}, nil
}

func decodeRect(v any) (Rect, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 4 {
		return Rect{}, fmt.Errorf("Rect must be an array of four numbers")
	}
	var vals [4]float64
	for i, e := range arr {
		f, err := floatValue(e)
		if err != nil {
			return Rect{}, fmt.Errorf("Rect[%d]: %w", i, err)
		}
		vals[i] = f
	}
	return Rect{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, nil
}

func decodeLinkMeta(raw map[string]any) (*LinkMeta, error) {
	l := &LinkMeta{
		URI:          stringKey(raw, "URI"),
		LinkID:       stringKey(raw, "LinkID"),
		PersistentID: stringKey(raw, "PID"),
		Title:        stringKey(raw, "Title"),
		RefDate:      stringKey(raw, "RefDate"),
	}

	if s := stringKey(raw, "Status"); s != "" {
		l.Status = LinkStatus(s)
	}

	if v, ok := raw["Hash"]; ok {
		h, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("Hash must be a dictionary")
		}
		l.Hash = &ContentHash{
			Algorithm: HashAlgorithm(stringKey(h, "Algorithm")),
			Value:     stringKey(h, "Value"),
		}
	}

	if v, ok := raw["AltURIs"]; ok {
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("AltURIs must be an array")
		}
		for i, e := range arr {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("AltURIs[%d] is not a string", i)
			}
			l.AltURIs = append(l.AltURIs, s)
		}
	}

	return l, nil
}

func stringKey(raw map[string]any, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func floatValue(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func intValue(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}
