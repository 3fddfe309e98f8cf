package validate

import (
	"testing"
	"time"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

func validRecord() *model.DataDef {
	return &model.DataDef{
		ID:       "rec-1",
		DataType: model.TypeTable,
		Format:   model.FormatJSON,
		Binding:  model.Binding{Kind: model.BindDocument},
	}
}

func hasCode(issues []issue.Issue, code issue.Code) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestCheckShapeValidRecord(t *testing.T) {
	if issues := CheckShape(validRecord()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestCheckShapeUnknownDataType(t *testing.T) {
	rec := validRecord()
	rec.DataType = "Spreadsheet"

	issues := CheckShape(rec)
	if !hasCode(issues, issue.UnknownDataType) {
		t.Fatalf("expected UnknownDataType, got %v", issues)
	}
	if !issue.HasFatal(issues) {
		t.Fatal("UnknownDataType must be fatal")
	}
	if len(issues) != 1 {
		t.Fatalf("fatal issue must stop shape checking, got %v", issues)
	}
}

func TestCheckShapeUnknownTrustLevel(t *testing.T) {
	rec := validRecord()
	rec.TrustLevel = "Verified"

	issues := CheckShape(rec)
	if !hasCode(issues, issue.UnknownTrustLevel) || !issue.HasFatal(issues) {
		t.Fatalf("expected fatal UnknownTrustLevel, got %v", issues)
	}
}

func TestCheckShapeEmptyTrustLevelAllowed(t *testing.T) {
	rec := validRecord()
	rec.TrustLevel = ""
	if issues := CheckShape(rec); len(issues) != 0 {
		t.Fatalf("empty trust level is a valid omission, got %v", issues)
	}
}

func TestCheckShapeUnknownFormat(t *testing.T) {
	rec := validRecord()
	rec.Format = "YAML"

	issues := CheckShape(rec)
	if !hasCode(issues, issue.UnknownFormat) {
		t.Fatalf("expected UnknownFormat, got %v", issues)
	}
}

func TestCheckShapeCBORIsWarningOnly(t *testing.T) {
	rec := validRecord()
	rec.Format = model.FormatCBOR

	issues := CheckShape(rec)
	if !hasCode(issues, issue.UnsupportedFormat) {
		t.Fatalf("expected UnsupportedFormat warning, got %v", issues)
	}
	if issue.HasBlocking(issues) {
		t.Fatalf("CBOR declaration must not block, got %v", issues)
	}
}

func TestCheckShapeTrustMatrix(t *testing.T) {
	now := time.Now()
	conf := 0.9

	cases := []struct {
		name    string
		mutate  func(*model.DataDef)
		want    []issue.Code
		wantNot []issue.Code
	}{
		{
			name:   "author missing generator and created",
			mutate: func(r *model.DataDef) { r.TrustLevel = model.TrustAuthor },
			want:   []issue.Code{issue.MissingRequiredKey},
		},
		{
			name: "author complete",
			mutate: func(r *model.DataDef) {
				r.TrustLevel = model.TrustAuthor
				r.Generator = "writer/2.1"
				r.Created = &now
			},
			wantNot: []issue.Code{issue.MissingRequiredKey},
		},
		{
			name: "enriched missing confidence",
			mutate: func(r *model.DataDef) {
				r.TrustLevel = model.TrustEnriched
				r.Generator = "extractor/0.4"
				r.Created = &now
			},
			want: []issue.Code{issue.MissingRequiredKey},
		},
		{
			name: "enriched complete",
			mutate: func(r *model.DataDef) {
				r.TrustLevel = model.TrustEnriched
				r.Generator = "extractor/0.4"
				r.Created = &now
				r.Confidence = &conf
			},
			wantNot: []issue.Code{issue.MissingRequiredKey, issue.OutOfRangeValue},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validRecord()
			tc.mutate(rec)
			issues := CheckShape(rec)
			for _, code := range tc.want {
				if !hasCode(issues, code) {
					t.Errorf("expected %s, got %v", code, issues)
				}
			}
			for _, code := range tc.wantNot {
				if hasCode(issues, code) {
					t.Errorf("did not expect %s, got %v", code, issues)
				}
			}
		})
	}
}

func TestCheckShapeConfidenceOutOfRange(t *testing.T) {
	for _, c := range []float64{-0.1, 1.2} {
		conf := c
		rec := validRecord()
		rec.Confidence = &conf

		issues := CheckShape(rec)
		if !hasCode(issues, issue.OutOfRangeValue) {
			t.Errorf("confidence %g: expected OutOfRangeValue, got %v", c, issues)
		}
	}
}

func TestCheckShapeCustomRequiresSchema(t *testing.T) {
	rec := validRecord()
	rec.DataType = model.TypeCustom

	issues := CheckShape(rec)
	if !hasCode(issues, issue.SchemaRequired) {
		t.Fatalf("expected SchemaRequired, got %v", issues)
	}

	rec.SchemaURI = "https://schemas.example.com/part.json"
	if issues := CheckShape(rec); hasCode(issues, issue.SchemaRequired) {
		t.Fatalf("schema URI present, got %v", issues)
	}
}

func TestCheckShapeRelativeSchemaURI(t *testing.T) {
	rec := validRecord()
	rec.SchemaURI = "schemas/part.json"

	if issues := CheckShape(rec); !hasCode(issues, issue.InvalidURI) {
		t.Fatalf("expected InvalidURI for relative schema URI, got %v", issues)
	}
}

func TestCheckShapeLinkRules(t *testing.T) {
	rec := validRecord()
	rec.DataType = model.TypeLink

	issues := CheckShape(rec)
	if !hasCode(issues, issue.MissingRequiredKey) {
		t.Fatalf("link without LinkMeta: expected MissingRequiredKey, got %v", issues)
	}

	rec.Link = &model.LinkMeta{}
	issues = CheckShape(rec)
	if !hasCode(issues, issue.MissingRequiredKey) {
		t.Fatalf("link without any identifier: expected MissingRequiredKey, got %v", issues)
	}

	rec.Link = &model.LinkMeta{
		URI:  "https://example.com/data.csv",
		Hash: &model.ContentHash{Algorithm: "MD5", Value: "abc"},
	}
	issues = CheckShape(rec)
	if !hasCode(issues, issue.OutOfRangeValue) {
		t.Fatalf("unsupported hash algorithm: expected OutOfRangeValue, got %v", issues)
	}

	rec.Link = &model.LinkMeta{PersistentID: "doi:10.1000/182"}
	if issues := CheckShape(rec); issue.HasBlocking(issues) {
		t.Fatalf("PID alone identifies the link, got %v", issues)
	}
}
