package validate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/fetch"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/issue"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

func linkRecord(link *model.LinkMeta) *model.DataDef {
	return &model.DataDef{
		ID:       "link-1",
		DataType: model.TypeLink,
		Format:   model.FormatJSON,
		Binding:  model.Binding{Kind: model.BindDocument},
		Link:     link,
	}
}

func sha256Hex(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func TestCheckIntegrityNonLink(t *testing.T) {
	rec := validRecord()
	result, issues := CheckIntegrity(context.Background(), rec, fetch.NewMemory())
	if result != nil || issues != nil {
		t.Fatalf("non-link records carry no integrity result, got %+v / %v", result, issues)
	}
}

func TestCheckIntegrityURISyntax(t *testing.T) {
	rec := linkRecord(&model.LinkMeta{
		URI:     "not a uri at all\x7f",
		LinkID:  "https://wrong-scheme.example.com",
		AltURIs: []string{"relative/path", "https://ok.example.com/x"},
	})

	_, issues := CheckIntegrity(context.Background(), rec, nil)

	count := 0
	for _, i := range issues {
		if i.Code == issue.InvalidURI {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 InvalidURI issues (uri, linkId, altUris[0]), got %v", issues)
	}
}

func TestCheckIntegrityNoHashNoFetch(t *testing.T) {
	mem := fetch.NewMemory()
	rec := linkRecord(&model.LinkMeta{URI: "https://example.com/data.csv"})

	result, issues := CheckIntegrity(context.Background(), rec, mem)
	if result.Checked {
		t.Fatal("no declared hash: fetch must not be attempted")
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckIntegrityHashVerified(t *testing.T) {
	body := []byte("quarterly figures")
	mem := fetch.NewMemory()
	mem.Put("https://example.com/data.csv", body)

	rec := linkRecord(&model.LinkMeta{
		URI:  "https://example.com/data.csv",
		Hash: &model.ContentHash{Algorithm: model.SHA256, Value: sha256Hex(body)},
	})

	result, issues := CheckIntegrity(context.Background(), rec, mem)
	if !result.Checked || !result.HashVerified {
		t.Fatalf("expected verified hash, got %+v / %v", result, issues)
	}
	if result.ResolvedURI != "https://example.com/data.csv" {
		t.Fatalf("unexpected resolved URI %q", result.ResolvedURI)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckIntegrityMismatchThenAlternateMatches(t *testing.T) {
	body := []byte("original content")
	mem := fetch.NewMemory()
	mem.Put("https://primary.example.com/d", []byte("tampered content"))
	mem.Put("https://mirror.example.com/d", body)

	rec := linkRecord(&model.LinkMeta{
		URI:     "https://primary.example.com/d",
		AltURIs: []string{"https://mirror.example.com/d"},
		Hash:    &model.ContentHash{Algorithm: model.SHA256, Value: sha256Hex(body)},
	})

	result, issues := CheckIntegrity(context.Background(), rec, mem)
	if !result.HashVerified {
		t.Fatalf("alternate matched the digest, got %+v", result)
	}
	if result.ResolvedURI != "https://mirror.example.com/d" {
		t.Fatalf("resolved URI must be the matching alternate, got %q", result.ResolvedURI)
	}
	if !hasCode(issues, issue.HashMismatch) {
		t.Fatalf("primary mismatch must still be reported, got %v", issues)
	}
}

func TestCheckIntegrityMismatchEverywhere(t *testing.T) {
	mem := fetch.NewMemory()
	mem.Put("https://primary.example.com/d", []byte("one"))
	mem.Put("https://mirror.example.com/d", []byte("two"))

	rec := linkRecord(&model.LinkMeta{
		URI:     "https://primary.example.com/d",
		AltURIs: []string{"https://mirror.example.com/d"},
		Hash:    &model.ContentHash{Algorithm: model.SHA256, Value: sha256Hex([]byte("three"))},
	})

	result, issues := CheckIntegrity(context.Background(), rec, mem)
	if result.HashVerified {
		t.Fatal("nothing matched, HashVerified must be false")
	}
	if result.ResolvedURI != "https://primary.example.com/d" {
		t.Fatalf("ResolvedURI should be the first reachable URI, got %q", result.ResolvedURI)
	}

	// Exactly one mismatch issue regardless of how many URIs disagreed.
	count := 0
	for _, i := range issues {
		if i.Code == issue.HashMismatch {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one HashMismatch, got %v", issues)
	}
	if issue.HasFatal(issues) {
		t.Fatalf("hash mismatch is never fatal, got %v", issues)
	}
}

func TestCheckIntegrityAllUnreachable(t *testing.T) {
	rec := linkRecord(&model.LinkMeta{
		URI:     "https://gone.example.com/d",
		AltURIs: []string{"https://also-gone.example.com/d"},
		Hash:    &model.ContentHash{Algorithm: model.SHA256, Value: sha256Hex([]byte("x"))},
	})

	result, issues := CheckIntegrity(context.Background(), rec, fetch.NewMemory())
	if !result.Checked || result.HashVerified || result.ResolvedURI != "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !hasCode(issues, issue.AllUrisUnreachable) {
		t.Fatalf("expected AllUrisUnreachable warning, got %v", issues)
	}
	if issue.HasBlocking(issues) {
		t.Fatalf("unreachability alone must not block, got %v", issues)
	}
}

func TestCheckIntegrityLinkIDAsPrimary(t *testing.T) {
	body := []byte("persistent content")
	mem := fetch.NewMemory()
	mem.Put("linkid:abc-123", body)

	rec := linkRecord(&model.LinkMeta{
		LinkID: "linkid:abc-123",
		Hash:   &model.ContentHash{Algorithm: model.SHA256, Value: sha256Hex(body)},
	})

	result, _ := CheckIntegrity(context.Background(), rec, mem)
	if !result.HashVerified || result.ResolvedURI != "linkid:abc-123" {
		t.Fatalf("LinkID should be the primary when URI is absent, got %+v", result)
	}
}
