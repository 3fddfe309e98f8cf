// Package issue provides the standardized issue taxonomy for the SDL validation engine.
// Every finding produced during a validation run is an Issue with a closed code and
// a severity derived from that code.
package issue

import "fmt"

// Severity classifies how an issue affects a record's validation outcome.
type Severity string

const (
	// SeverityFatal means the record cannot be interpreted at all.
	// Validation of that record stops; the document run continues.
	SeverityFatal Severity = "fatal"
	// SeverityError means the record is interpretable but violates a rule.
	// It caps the achievable conformance level but does not abort the record.
	SeverityError Severity = "error"
	// SeverityWarning is informational and never affects the conformance level.
	SeverityWarning Severity = "warning"
)

// Code identifies a specific validation finding.
type Code string

const (
	// Structural issues (fatal)
	UnknownDataType  Code = "UnknownDataType"  // DataType is not one of the 25 recognized categories
	UnknownTrustLevel Code = "UnknownTrustLevel" // TrustLevel is not Signed, Author, or Enriched
	MalformedRecord  Code = "MalformedRecord"  // Record dictionary cannot be interpreted

	// Validation issues (recoverable errors)
	MissingRequiredKey Code = "MissingRequiredKey" // Required key absent for the declared trust level
	OutOfRangeValue    Code = "OutOfRangeValue"    // Value outside its permitted range (e.g. confidence)
	SchemaRequired     Code = "SchemaRequired"     // Custom DataType without a schema URI
	UnknownFormat      Code = "UnknownFormat"      // Format is not JSON, XML, CSV, or CBOR
	UnresolvedBinding  Code = "UnresolvedBinding"  // Binding target missing or of the wrong kind
	InvalidURI         Code = "InvalidURI"         // URI fails syntax validation
	HashMismatch       Code = "HashMismatch"       // Recomputed content hash differs from declared

	// Warnings
	UnsupportedFormat      Code = "UnsupportedFormat"      // Declared format accepted but not decoded (CBOR)
	AllUrisUnreachable     Code = "AllUrisUnreachable"     // Primary URI and every alternate failed to fetch
	DuplicateBindingTarget Code = "DuplicateBindingTarget" // Two or more records bind the same target
	RectClamped            Code = "RectClamped"            // Out-of-bounds rect clipped under the clamp policy
	TrustDowngraded        Code = "TrustDowngraded"        // Effective trust is lower than declared
)

// Issue represents a single validation finding on a record or document.
type Issue struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
}

// New creates an Issue with the severity implied by its code.
func New(code Code, field, format string, args ...any) Issue {
	return Issue{
		Code:     code,
		Severity: severityForCode(code),
		Message:  fmt.Sprintf(format, args...),
		Field:    field,
	}
}

// Error implements the error interface so issues can flow through error paths.
func (i Issue) Error() string {
	if i.Field != "" {
		return fmt.Sprintf("%s [%s] %s (field: %s)", i.Severity, i.Code, i.Message, i.Field)
	}
	return fmt.Sprintf("%s [%s] %s", i.Severity, i.Code, i.Message)
}

// severityForCode maps issue codes to severities.
/// The mapping is total: unknown codes are treated as errors rather than dropped.
func severityForCode(code Code) Severity {
	switch code {
	case UnknownDataType, UnknownTrustLevel, MalformedRecord:
		return SeverityFatal
	case MissingRequiredKey, OutOfRangeValue, SchemaRequired, UnknownFormat, UnresolvedBinding, InvalidURI, HashMismatch:
		return SeverityError
	case UnsupportedFormat, AllUrisUnreachable, DuplicateBindingTarget, RectClamped, TrustDowngraded:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// HasBlocking reports whether any issue in the list is fatal or an error.
// Warnings never block.
func HasBlocking(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityFatal || i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasFatal reports whether any issue in the list is fatal.
func HasFatal(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Split partitions issues into errors (fatal included) and warnings,
// preserving order within each partition.
func Split(issues []Issue) (errs, warns []Issue) {
	for _, i := range issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		} else {
			errs = append(errs, i)
		}
	}
	return errs, warns
}
