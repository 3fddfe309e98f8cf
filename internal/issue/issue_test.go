package issue

import "testing"

func TestSeverityForCode(t *testing.T) {
	fatal := []Code{UnknownDataType, UnknownTrustLevel, MalformedRecord}
	errs := []Code{MissingRequiredKey, OutOfRangeValue, SchemaRequired, UnknownFormat, UnresolvedBinding, InvalidURI, HashMismatch}
	warns := []Code{UnsupportedFormat, AllUrisUnreachable, DuplicateBindingTarget, RectClamped, TrustDowngraded}

	for _, c := range fatal {
		if got := New(c, "", "x").Severity; got != SeverityFatal {
			t.Errorf("%s severity = %s, want fatal", c, got)
		}
	}
	for _, c := range errs {
		if got := New(c, "", "x").Severity; got != SeverityError {
			t.Errorf("%s severity = %s, want error", c, got)
		}
	}
	for _, c := range warns {
		if got := New(c, "", "x").Severity; got != SeverityWarning {
			t.Errorf("%s severity = %s, want warning", c, got)
		}
	}
}

func TestHelpers(t *testing.T) {
	warn := New(RectClamped, "binding.rect", "clipped")
	err := New(InvalidURI, "link.uri", "bad uri %q", "x")
	fatal := New(MalformedRecord, "", "nope")

	if HasBlocking([]Issue{warn}) {
		t.Fatal("warnings never block")
	}
	if !HasBlocking([]Issue{warn, err}) || !HasBlocking([]Issue{fatal}) {
		t.Fatal("errors and fatals block")
	}
	if HasFatal([]Issue{warn, err}) {
		t.Fatal("no fatal present")
	}
	if !HasFatal([]Issue{err, fatal}) {
		t.Fatal("fatal present")
	}

	errs, warns := Split([]Issue{warn, err, fatal})
	if len(errs) != 2 || len(warns) != 1 {
		t.Fatalf("Split = %v / %v", errs, warns)
	}
	if errs[0].Code != InvalidURI || errs[1].Code != MalformedRecord {
		t.Fatalf("Split must preserve order, got %v", errs)
	}
}

func TestIssueError(t *testing.T) {
	i := New(InvalidURI, "link.uri", "URI %q is bad", "x")
	if i.Error() == "" {
		t.Fatal("Error() must not be empty")
	}
	if i.Message != `URI "x" is bad` {
		t.Fatalf("Message = %q", i.Message)
	}
}
