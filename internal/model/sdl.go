// internal/model/sdl.go
// Package model defines the data structures for the SDL validation engine.
// These structures represent DataDef and LinkMeta records, their closed
// enumerations, and the binding variant pointing a record at the visual
// element it describes.
package model

import (
	"fmt"
	"time"
)

// DataFormat is the serialization format of a DataDef data stream.
type DataFormat string

const (
	FormatJSON DataFormat = "JSON"
	FormatXML  DataFormat = "XML"
	FormatCSV  DataFormat = "CSV"
	FormatCBOR DataFormat = "CBOR" // accepted as declared, payload decoding not attempted
)

// knownFormats is the closed set of supported serialization formats.
var knownFormats = map[DataFormat]bool{
	FormatJSON: true,
	FormatXML:  true,
	FormatCSV:  true,
	FormatCBOR: true,
}

// KnownFormat reports whether f is a recognized serialization format.
func KnownFormat(f DataFormat) bool { return knownFormats[f] }

// DataType classifies the semantic category of a record's structured data.
// The set is closed: 25 categories including Custom.
type DataType string

const (
	// Data extraction
	TypeTable   DataType = "Table"
	TypeRecord  DataType = "Record"
	TypeValue   DataType = "Value"
	TypeSeries  DataType = "Series"
	TypeChart   DataType = "Chart"
	TypeForm    DataType = "Form"
	TypeDataset DataType = "Dataset"
	// References and links
	TypeLink      DataType = "Link"
	TypeReference DataType = "Reference"
	TypeCitation  DataType = "Citation"
	// Scientific / engineering
	TypeFormula     DataType = "Formula"
	TypeCode        DataType = "Code"
	TypeMeasurement DataType = "Measurement"
	TypeGeospatial  DataType = "Geospatial"
	TypeTimeline    DataType = "Timeline"
	TypeEvent       DataType = "Event"
	// Governance / compliance
	TypeClassification DataType = "Classification"
	TypeProvenance     DataType = "Provenance"
	TypeIdentity       DataType = "Identity"
	TypeTranslation    DataType = "Translation"
	TypeContact        DataType = "Contact"
	// Commercial
	TypeContract DataType = "Contract"
	TypeInvoice  DataType = "Invoice"
	TypeReceipt  DataType = "Receipt"
	// Extensible
	TypeCustom DataType = "Custom"
)

// knownDataTypes is the closed set of the 25 recognized categories.
var knownDataTypes = map[DataType]bool{
	TypeTable: true, TypeRecord: true, TypeValue: true, TypeSeries: true,
	TypeChart: true, TypeForm: true, TypeDataset: true,
	TypeLink: true, TypeReference: true, TypeCitation: true,
	TypeFormula: true, TypeCode: true, TypeMeasurement: true,
	TypeGeospatial: true, TypeTimeline: true, TypeEvent: true,
	TypeClassification: true, TypeProvenance: true, TypeIdentity: true,
	TypeTranslation: true, TypeContact: true,
	TypeContract: true, TypeInvoice: true, TypeReceipt: true,
	TypeCustom: true,
}

// KnownDataType reports whether t is one of the 25 recognized categories.
func KnownDataType(t DataType) bool { return knownDataTypes[t] }

// TrustLevel classifies who or what produced a record's data.
type TrustLevel string

const (
	// TrustSigned means the record is declared to be within the scope of a
	// digital signature.
	TrustSigned TrustLevel = "Signed"
	// TrustAuthor means the record was created by the document author at
	// authoring time.
	TrustAuthor TrustLevel = "Author"
	// TrustEnriched means the record was added post-creation by an
	// extraction tool, AI, or third-party service.
	TrustEnriched TrustLevel = "Enriched"
)

// KnownTrustLevel reports whether t is a recognized trust level.
// The empty string is permitted: trust is an optional declaration.
func KnownTrustLevel(t TrustLevel) bool {
	return t == "" || t == TrustSigned || t == TrustAuthor || t == TrustEnriched
}

// DowngradeTrust returns the lower of the two trust levels, treating
// Signed > Author > Enriched. An empty declared level stays empty.
func DowngradeTrust(declared, cap TrustLevel) TrustLevel {
	if declared == "" {
		return ""
	}
	if trustRank(cap) < trustRank(declared) {
		return cap
	}
	return declared
}

func trustRank(t TrustLevel) int {
	switch t {
	case TrustSigned:
		return 3
	case TrustAuthor:
		return 2
	case TrustEnriched:
		return 1
	default:
		return 0
	}
}

// LinkStatus is the declared live status of a link record's target.
type LinkStatus string

const (
	StatusActive     LinkStatus = "Active"
	StatusStale      LinkStatus = "Stale"
	StatusBroken     LinkStatus = "Broken"
	StatusSuperseded LinkStatus = "Superseded"
)

// HashAlgorithm identifies the digest algorithm of a content hash.
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "SHA-256"
	SHA384 HashAlgorithm = "SHA-384"
	SHA512 HashAlgorithm = "SHA-512"
)

// KnownHashAlgorithm reports whether a is a supported digest algorithm.
func KnownHashAlgorithm(a HashAlgorithm) bool {
	return a == SHA256 || a == SHA384 || a == SHA512
}

// ConformanceLevel is one of the four increasingly strict validity tiers,
// plus None for records that fail the Basic gate. Levels are ordered and
// never skipped: a record at level k satisfies every level below k.
type ConformanceLevel int

const (
	ConformanceNone ConformanceLevel = iota
	ConformanceBasic
	ConformanceSchema
	ConformanceProvenance
	ConformanceSigned
)

// String returns the wire name of the conformance level.
func (c ConformanceLevel) String() string {
	switch c {
	case ConformanceBasic:
		return "Basic"
	case ConformanceSchema:
		return "Schema"
	case ConformanceProvenance:
		return "Provenance"
	case ConformanceSigned:
		return "Signed"
	default:
		return "None"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON reports.
func (c ConformanceLevel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so persisted reports
// round-trip.
func (c *ConformanceLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "None":
		*c = ConformanceNone
	case "Basic":
		*c = ConformanceBasic
	case "Schema":
		*c = ConformanceSchema
	case "Provenance":
		*c = ConformanceProvenance
	case "Signed":
		*c = ConformanceSigned
	default:
		return fmt.Errorf("unknown conformance level %q", text)
	}
	return nil
}

// BindingKind discriminates the binding variant.
type BindingKind string

const (
	// BindDocument binds the record to the document root.
	BindDocument BindingKind = "DocumentLevel"
	// BindStruct binds the record to a structure element by id.
	BindStruct BindingKind = "StructRef"
	// BindAnnot binds the record to an annotation by id.
	BindAnnot BindingKind = "AnnotRef"
	// BindPage binds the record to a rectangular region on a page.
	BindPage BindingKind = "PageRef"
)

// Rect is an axis-aligned rectangle [x0,y0,x1,y1] with x0<x1 and y0<y1.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Ordered reports whether the rect satisfies the ordering invariant.
func (r Rect) Ordered() bool { return r.X0 < r.X1 && r.Y0 < r.Y1 }

// Within reports whether r lies entirely inside the bounds rect.
func (r Rect) Within(bounds Rect) bool {
	return r.X0 >= bounds.X0 && r.Y0 >= bounds.Y0 && r.X1 <= bounds.X1 && r.Y1 <= bounds.Y1
}

// Clamp returns r clipped to bounds. Callers must check Ordered on the
// result: clamping a fully out-of-bounds rect can collapse it.
func (r Rect) Clamp(bounds Rect) Rect {
	c := r
	if c.X0 < bounds.X0 {
		c.X0 = bounds.X0
	}
	if c.Y0 < bounds.Y0 {
		c.Y0 = bounds.Y0
	}
	if c.X1 > bounds.X1 {
		c.X1 = bounds.X1
	}
	if c.Y1 > bounds.Y1 {
		c.Y1 = bounds.Y1
	}
	return c
}

// Binding is the closed variant pointing a record at the element it
// describes. Kind selects the variant; only the fields of the selected
// variant are meaningful.
type Binding struct {
	Kind BindingKind `json:"kind"`

	// StructRef / AnnotRef
	TargetID string `json:"targetId,omitempty"`

	// PageRef
	Page int   `json:"page,omitempty"` // 1-based
	Rect *Rect `json:"rect,omitempty"`
}

// StorageLocation identifies where a record's dictionary lives in the
// persisted container. It is opaque to the engine except for signature
// scope containment.
type StorageLocation struct {
	ObjectID   string `json:"objectId,omitempty"`
	ByteOffset int64  `json:"byteOffset"`
	ByteLength int64  `json:"byteLength"`
}

// ContentHash is the declared digest of a link target at RefDate.
type ContentHash struct {
	Algorithm HashAlgorithm `json:"algorithm"`
	Value     string        `json:"value"` // hex-encoded
}

// LinkMeta carries the internet-aware attributes of a Link record.
// At least one of URI, LinkID, PersistentID must be present.
type LinkMeta struct {
	URI          string       `json:"uri,omitempty"`
	LinkID       string       `json:"linkId,omitempty"`       // linkid: scheme
	PersistentID string       `json:"persistentId,omitempty"` // DOI, ARK, Handle, URN
	Title        string       `json:"title,omitempty"`
	RefDate      string       `json:"refDate,omitempty"`
	Hash         *ContentHash `json:"hash,omitempty"`
	AltURIs      []string     `json:"altUris,omitempty"` // fallbacks, ordered by preference
	Status       LinkStatus   `json:"status,omitempty"`
}

// HasIdentifier reports whether at least one of the three identification
// mechanisms is present.
func (l *LinkMeta) HasIdentifier() bool {
	return l.URI != "" || l.LinkID != "" || l.PersistentID != ""
}

// DataDef is one structured-data attachment extracted from a document.
// Instances are immutable inputs to the engine; the engine never mutates
// them during a validation run.
type DataDef struct {
	// ID identifies the record within the document (object id or synthetic
	// index assigned by the reader).
	ID string `json:"id"`

	DataType   DataType   `json:"dataType"`
	Format     DataFormat `json:"format"`
	TrustLevel TrustLevel `json:"trustLevel,omitempty"`
	Binding    Binding    `json:"binding"`

	SchemaURI  string     `json:"schemaUri,omitempty"` // required when DataType is Custom
	Source     string     `json:"source,omitempty"`
	Created    *time.Time `json:"created,omitempty"`
	Generator  string     `json:"generator,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"` // required when TrustLevel is Enriched

	// RawData is the opaque byte payload; DecodedValue is supplied by an
	// external format decoder and may be nil for undecoded formats.
	RawData      []byte `json:"-"`
	DecodedValue any    `json:"-"`

	// Link is non-nil when DataType is Link.
	Link *LinkMeta `json:"link,omitempty"`

	Location StorageLocation `json:"location"`
}

// IsLink reports whether the record is a link record carrying LinkMeta.
func (d *DataDef) IsLink() bool { return d.DataType == TypeLink && d.Link != nil }

// HasProvenance reports whether source, created, and generator are all
// present, the Provenance-level requirement.
func (d *DataDef) HasProvenance() bool {
	return d.Source != "" && d.Created != nil && d.Generator != ""
}
