package model

import "testing"

func TestDowngradeTrust(t *testing.T) {
	cases := []struct {
		declared, cap, want TrustLevel
	}{
		{TrustSigned, TrustAuthor, TrustAuthor},
		{TrustSigned, TrustEnriched, TrustEnriched},
		{TrustAuthor, TrustEnriched, TrustEnriched},
		{TrustEnriched, TrustEnriched, TrustEnriched},
		{TrustAuthor, TrustSigned, TrustAuthor}, // cap above declared is a no-op
		{"", TrustEnriched, ""},                 // no declaration, nothing to downgrade
	}
	for _, tc := range cases {
		if got := DowngradeTrust(tc.declared, tc.cap); got != tc.want {
			t.Errorf("DowngradeTrust(%q, %q) = %q, want %q", tc.declared, tc.cap, got, tc.want)
		}
	}
}

func TestConformanceLevelOrdering(t *testing.T) {
	order := []ConformanceLevel{
		ConformanceNone, ConformanceBasic, ConformanceSchema,
		ConformanceProvenance, ConformanceSigned,
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Fatalf("%s must be below %s", order[i-1], order[i])
		}
	}

	names := map[ConformanceLevel]string{
		ConformanceNone:       "None",
		ConformanceBasic:      "Basic",
		ConformanceSchema:     "Schema",
		ConformanceProvenance: "Provenance",
		ConformanceSigned:     "Signed",
	}
	for level, want := range names {
		if level.String() != want {
			t.Errorf("%d.String() = %q, want %q", level, level.String(), want)
		}
	}
}

func TestRectGeometry(t *testing.T) {
	bounds := Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

	if !(Rect{X0: 72, Y0: 400, X1: 540, Y1: 720}).Ordered() {
		t.Fatal("well-formed rect reported unordered")
	}
	if (Rect{X0: 540, Y0: 400, X1: 72, Y1: 720}).Ordered() {
		t.Fatal("x0>x1 rect reported ordered")
	}

	inside := Rect{X0: 10, Y0: 10, X1: 100, Y1: 100}
	if !inside.Within(bounds) {
		t.Fatal("inside rect reported outside")
	}

	spilling := Rect{X0: 500, Y0: 700, X1: 700, Y1: 900}
	if spilling.Within(bounds) {
		t.Fatal("spilling rect reported inside")
	}
	clamped := spilling.Clamp(bounds)
	if clamped != (Rect{X0: 500, Y0: 700, X1: 612, Y1: 792}) {
		t.Fatalf("Clamp = %+v", clamped)
	}
	if !clamped.Ordered() {
		t.Fatal("partially overlapping rect must stay ordered after clamp")
	}

	// A rect entirely outside collapses when clamped.
	outside := Rect{X0: 700, Y0: 800, X1: 900, Y1: 1000}
	if outside.Clamp(bounds).Ordered() {
		t.Fatal("fully outside rect must collapse under clamp")
	}
}

func TestDataDefPredicates(t *testing.T) {
	rec := DataDef{DataType: TypeLink}
	if rec.IsLink() {
		t.Fatal("link type without LinkMeta is not a link record")
	}
	rec.Link = &LinkMeta{URI: "https://example.com"}
	if !rec.IsLink() {
		t.Fatal("expected a link record")
	}

	if (&DataDef{Source: "s", Generator: "g"}).HasProvenance() {
		t.Fatal("provenance requires created too")
	}
}
