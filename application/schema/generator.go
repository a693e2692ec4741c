// Package schema generates JSON schemas for host op payloads.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	domainerrors "github.com/reglet-dev/runjs/domain/errors"
)

// newReflector returns the reflector every op schema is built with.
// Payloads are closed objects: unknown keys are not part of any op's contract.
func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
}

// GenerateSchema creates a compact JSON schema (Draft 2020-12) from a Go struct.
// Failures are reported as a SchemaError naming the model's type.
func GenerateSchema(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, &domainerrors.SchemaError{Err: errors.New("model is nil")}
	}
	jsonBytes, err := json.Marshal(newReflector().Reflect(v))
	if err != nil {
		return nil, &domainerrors.SchemaError{Type: fmt.Sprintf("%T", v), Err: err}
	}
	return jsonBytes, nil
}
