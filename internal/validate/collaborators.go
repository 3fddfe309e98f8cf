// internal/validate/collaborators.go
// External collaborator interfaces consumed by the engine. Callers may
// provide their own implementations; defaults live in internal/schemacheck,
// internal/sigscope, and internal/fetch.
package validate

import (
	"context"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// SchemaOutcome is the tri-state result of validating a decoded value
// against a referenced schema.
type SchemaOutcome int

const (
	// SchemaUnreachable means the schema could not be retrieved or
	// compiled; the Schema gate fails but no error is raised.
	SchemaUnreachable SchemaOutcome = iota
	// SchemaPass means the decoded value validates against the schema.
	SchemaPass
	// SchemaFail means the decoded value does not validate.
	SchemaFail
)

// SchemaChecker validates a decoded value against the schema a record
// references. The engine consumes only the pass/fail/unreachable outcome.
type SchemaChecker interface {
	Check(ctx context.Context, schemaURI string, value any) SchemaOutcome
}

// ScopeOracle answers whether a storage location falls within the
// document's digital-signature byte-range scope. It answers containment
// only; signature correctness is out of scope.
type ScopeOracle interface {
	Covers(loc model.StorageLocation) bool
}
