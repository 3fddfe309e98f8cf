// internal/validate/conformance.go
// The four-level conformance ladder. Each level's requirements are a
// strict superset of the previous; the classifier walks the gates in
// order and stops at the first failure, so levels are never skipped.
package validate

import (
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// gateInput carries the component outcomes the ladder gates consume.
type gateInput struct {
	shapeClean      bool // shape checker reported no fatal/error issues
	bindingResolved bool
	schemaURI       string
	schemaOutcome   SchemaOutcome
	hasProvenance   bool // source, created, generator all present
	inScope         bool // storage location within signature byte-range scope
}

// conformanceGate is one rung of the ladder.
type conformanceGate struct {
	level model.ConformanceLevel
	holds func(gateInput) bool
}

// gates is ordered bottom-up. Adding a future level means appending a
// gate; the no-skip invariant is preserved by construction.
var gates = []conformanceGate{
	{model.ConformanceBasic, func(in gateInput) bool {
		return in.shapeClean && in.bindingResolved
	}},
	{model.ConformanceSchema, func(in gateInput) bool {
		return in.schemaURI != "" && in.schemaOutcome == SchemaPass
	}},
	{model.ConformanceProvenance, func(in gateInput) bool {
		return in.hasProvenance
	}},
	{model.ConformanceSigned, func(in gateInput) bool {
		return in.inScope
	}},
}

// classifyConformance returns the highest level whose gate, and every
// gate below it, holds.
func classifyConformance(in gateInput) model.ConformanceLevel {
	level := model.ConformanceNone
	for _, g := range gates {
		if !g.holds(in) {
			break
		}
		level = g.level
	}
	return level
}
