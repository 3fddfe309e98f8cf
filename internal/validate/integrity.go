// internal/validate/integrity.go
// Link-integrity checking: URI syntax validation, content-hash
// recomputation, and ordered fallthrough across alternate URIs.
package validate

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/fetch"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// linkIDScheme is the IANA scheme for LinkID persistent identifiers.
const linkIDScheme = "linkid"

// CheckIntegrity validates URI syntax for a link record and, when a
// content hash is declared, fetches the target content and compares
// digests. Fetch failures are never fatal: structural validity is
// independent of live reachability.
func CheckIntegrity(ctx context.Context, rec *model.DataDef, fetcher fetch.Fetcher) (*model.IntegrityResult, []issue.Issue) {
	if !rec.IsLink() {
		return nil, nil
	}
	link := rec.Link

	// Syntax validation is always performed, regardless of reachability.
	issues := checkURISyntax(link)

	result := &model.IntegrityResult{}
	if link.Hash == nil || fetcher == nil {
		return result, issues
	}
	if !model.KnownHashAlgorithm(link.Hash.Algorithm) {
		// Shape checking already reported the unsupported algorithm; there
		// is nothing meaningful to verify against.
		return result, issues
	}

	result.Checked = true

	// Primary first, then alternates in declared preference order.
	candidates := make([]string, 0, len(link.AltURIs)+1)
	if primary := primaryURI(link); primary != "" {
		candidates = append(candidates, primary)
	}
	candidates = append(candidates, link.AltURIs...)

	reachedAny := false
	mismatchReported := false
	for _, uri := range candidates {
		body, err := fetcher.Fetch(ctx, uri)
		if err != nil {
			continue
		}
		reachedAny = true
		if result.ResolvedURI == "" {
			result.ResolvedURI = uri
		}

		if digestMatches(link.Hash, body) {
			result.HashVerified = true
			result.ResolvedURI = uri
			break
		}
		if !mismatchReported {
			issues = append(issues, issue.New(issue.HashMismatch, "link.hash",
				"content at %s does not match the declared %s digest", uri, link.Hash.Algorithm))
			mismatchReported = true
		}
	}

	if !reachedAny && len(candidates) > 0 {
		issues = append(issues, issue.New(issue.AllUrisUnreachable, "link",
			"primary URI and all %d alternate(s) were unreachable", len(link.AltURIs)))
	}

	return result, issues
}

// primaryURI picks the URI the fetcher should address first.
func primaryURI(link *model.LinkMeta) string {
	if link.URI != "" {
		return link.URI
	}
	return link.LinkID
}

// checkURISyntax validates every URI-shaped attribute of the link.
func checkURISyntax(link *model.LinkMeta) []issue.Issue {
	var issues []issue.Issue

	if link.URI != "" && !isAbsoluteURI(link.URI) {
		issues = append(issues, issue.New(issue.InvalidURI, "link.uri",
			"URI %q is not a valid absolute URI", link.URI))
	}
	if link.LinkID != "" {
		u, err := url.Parse(link.LinkID)
		if err != nil || !strings.EqualFold(u.Scheme, linkIDScheme) || u.Opaque == "" && u.Host == "" && u.Path == "" {
			issues = append(issues, issue.New(issue.InvalidURI, "link.linkId",
				"LinkID %q must use the linkid: scheme", link.LinkID))
		}
	}
	for i, alt := range link.AltURIs {
		if !isAbsoluteURI(alt) {
			issues = append(issues, issue.New(issue.InvalidURI, "link.altUris",
				"AltURIs[%d] %q is not a valid absolute URI", i, alt))
		}
	}

	return issues
}

// digestMatches recomputes the declared digest over body and compares
// case-insensitively with the declared hex value.
func digestMatches(h *model.ContentHash, body []byte) bool {
	var sum []byte
	switch h.Algorithm {
	case model.SHA256:
		s := sha256.Sum256(body)
		sum = s[:]
	case model.SHA384:
		s := sha512.Sum384(body)
		sum = s[:]
	case model.SHA512:
		s := sha512.Sum512(body)
		sum = s[:]
	default:
		return false
	}
	return strings.EqualFold(hex.EncodeToString(sum), h.Value)
}
