// internal/validate/shape.go
// Schema-shape validation: checks one record against the closed key and
// enumeration sets and the required-key matrix for its declared trust
// level. Pure function, no side effects.
package validate

import (
	"net/url"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// CheckShape validates the structural shape of a single record and
// returns the ordered list of issues found. A fatal issue means the
// record cannot be interpreted; callers stop validating that record.
func CheckShape(rec *model.DataDef) []issue.Issue {
	var issues []issue.Issue

	if !model.KnownDataType(rec.DataType) {
		issues = append(issues, issue.New(issue.UnknownDataType, "dataType",
			"unrecognized DataType %q", string(rec.DataType)))
		// The record is uninterpretable; further shape rules depend on the type.
		return issues
	}

	if !model.KnownTrustLevel(rec.TrustLevel) {
		issues = append(issues, issue.New(issue.UnknownTrustLevel, "trustLevel",
			"unrecognized TrustLevel %q", string(rec.TrustLevel)))
		return issues
	}

	if !model.KnownFormat(rec.Format) {
		issues = append(issues, issue.New(issue.UnknownFormat, "format",
			"unrecognized Format %q", string(rec.Format)))
	} else if rec.Format == model.FormatCBOR {
		// CBOR is a valid declaration but payload decoding is not attempted.
		issues = append(issues, issue.New(issue.UnsupportedFormat, "format",
			"CBOR payload decoding is not supported; data stream left opaque"))
	}

	issues = append(issues, checkTrustMatrix(rec)...)

	if rec.DataType == model.TypeCustom {
		if rec.SchemaURI == "" {
			issues = append(issues, issue.New(issue.SchemaRequired, "schemaUri",
				"Schema URI is required when DataType is Custom"))
		}
	}
	if rec.SchemaURI != "" && !isAbsoluteURI(rec.SchemaURI) {
		issues = append(issues, issue.New(issue.InvalidURI, "schemaUri",
			"Schema URI %q is not a valid absolute URI", rec.SchemaURI))
	}

	if rec.DataType == model.TypeLink {
		issues = append(issues, checkLinkShape(rec)...)
	}

	return issues
}

// checkTrustMatrix applies the required-key matrix for the declared
// trust level: Author and Enriched require generator and created;
// Enriched additionally requires confidence in [0,1].
func checkTrustMatrix(rec *model.DataDef) []issue.Issue {
	var issues []issue.Issue

	if rec.TrustLevel == model.TrustAuthor || rec.TrustLevel == model.TrustEnriched {
		if rec.Generator == "" {
			issues = append(issues, issue.New(issue.MissingRequiredKey, "generator",
				"Generator is required when TrustLevel is %s", rec.TrustLevel))
		}
		if rec.Created == nil {
			issues = append(issues, issue.New(issue.MissingRequiredKey, "created",
				"Created is required when TrustLevel is %s", rec.TrustLevel))
		}
	}

	if rec.TrustLevel == model.TrustEnriched {
		if rec.Confidence == nil {
			issues = append(issues, issue.New(issue.MissingRequiredKey, "confidence",
				"Confidence is required when TrustLevel is Enriched"))
		}
	}
	if rec.Confidence != nil {
		if c := *rec.Confidence; c < 0 || c > 1 {
			issues = append(issues, issue.New(issue.OutOfRangeValue, "confidence",
				"Confidence %g is outside [0, 1]", c))
		}
	}

	return issues
}

// checkLinkShape applies the LinkMeta-specific shape rules.
func checkLinkShape(rec *model.DataDef) []issue.Issue {
	var issues []issue.Issue

	if rec.Link == nil {
		issues = append(issues, issue.New(issue.MissingRequiredKey, "link",
			"Link records must carry LinkMeta attributes"))
		return issues
	}

	if !rec.Link.HasIdentifier() {
		issues = append(issues, issue.New(issue.MissingRequiredKey, "link",
			"at least one of URI, LinkID, PID must be present"))
	}

	if h := rec.Link.Hash; h != nil {
		if !model.KnownHashAlgorithm(h.Algorithm) {
			issues = append(issues, issue.New(issue.OutOfRangeValue, "link.hash.algorithm",
				"unsupported hash algorithm %q", string(h.Algorithm)))
		}
		if h.Value == "" {
			issues = append(issues, issue.New(issue.MissingRequiredKey, "link.hash.value",
				"Hash value must be non-empty"))
		}
	}

	return issues
}

// isAbsoluteURI reports whether s parses as an absolute URI with a scheme.
func isAbsoluteURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}
