package dump

import (
	"strings"
	"testing"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

const sampleDump = `{
  "document": {
    "id": "doc-42",
    "pages": [
      {"mediaBox": [0, 0, 612, 792]},
      {},
      {"mediaBox": [0, 0, 842, 1190]}
    ],
    "structElements": [{"id": "S1", "page": 1}],
    "annotations": [{"id": "A1", "page": 3}],
    "signatureRanges": [{"offset": 0, "length": 4096}]
  },
  "records": [
    {"ID": "tbl-1", "DataType": "Table", "Format": "JSON", "PageRef": 1, "Rect": [72, 400, 540, 720]},
    {"DataType": "Value", "Format": "JSON", "StructRef": "S1"},
    {"DataType": "Value", "Format": "JSON", "Created": "not-a-date"}
  ]
}`

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatal(err)
	}

	if d.DocumentID != "doc-42" {
		t.Fatalf("DocumentID = %q", d.DocumentID)
	}
	if d.Doc.PageCount() != 3 {
		t.Fatalf("PageCount = %d", d.Doc.PageCount())
	}

	// A page without a media box defaults to US Letter.
	box, err := d.Doc.PageMediaBox(2)
	if err != nil || box != (model.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}) {
		t.Fatalf("default media box = %+v, %v", box, err)
	}

	if len(d.Records) != 3 {
		t.Fatalf("Records = %d", len(d.Records))
	}
	if d.Records[0].ID != "tbl-1" {
		t.Fatalf("explicit id not honored: %q", d.Records[0].ID)
	}
	if d.Records[1].ID != "record-2" {
		t.Fatalf("synthetic id = %q", d.Records[1].ID)
	}

	// The third record fails to decode but keeps its slot.
	if len(d.DecodeErrors) != 1 {
		t.Fatalf("DecodeErrors = %v", d.DecodeErrors)
	}
	if _, ok := d.DecodeErrors[2]; !ok {
		t.Fatalf("decode error expected at index 2, got %v", d.DecodeErrors)
	}

	if !d.Scope.Covers(model.StorageLocation{ByteOffset: 100, ByteLength: 100}) {
		t.Fatal("signature scope not wired through")
	}
}

func TestParseRejectsBadGraph(t *testing.T) {
	cases := []string{
		`{"document": {"pages": [{"mediaBox": [0, 0, 612]}]}}`,
		`{"document": {"pages": [{}], "structElements": [{"id": "", "page": 1}]}}`,
		`{"document": {"pages": [{}], "structElements": [{"id": "S1", "page": 5}]}}`,
		`{"document": {"pages": [{}], "annotations": [{"id": "A1", "page": 0}]}}`,
		`{"document": {"signatureRanges": [{"offset": -1, "length": 10}]}}`,
		`not json`,
	}
	for i, body := range cases {
		if _, err := Parse(strings.NewReader(body)); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
}
