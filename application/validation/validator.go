// Package validation checks extension manifests before an engine is built.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/runjs/domain/entities"
	"github.com/reglet-dev/runjs/domain/ports"
)

// OpLookup reports which op names have no registered handler.
// hostfuncs.HandlerRegistry satisfies it.
type OpLookup interface {
	Missing(names ...string) []string
}

// ManifestValidator implements ports.ManifestValidator with struct tags plus a
// cross-check against the registered host ops.
type ManifestValidator struct {
	ops      OpLookup
	validate *validator.Validate
}

// NewManifestValidator creates a validator bound to the given op registry.
func NewManifestValidator(ops OpLookup) ports.ManifestValidator {
	return &ManifestValidator{
		ops:      ops,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate collects every problem instead of stopping at the first one.
// The returned error is reserved for a validator that could not run.
func (v *ManifestValidator) Validate(manifest *entities.ExtensionManifest) (*entities.ValidationResult, error) {
	if manifest == nil {
		return nil, errors.New("manifest is nil")
	}
	result := &entities.ValidationResult{Valid: true}

	if err := v.validate.Struct(manifest); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("validate manifest: %w", err)
		}
		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed on %q (%s)", fe.Tag(), fe.Param()),
			})
		}
	}

	seen := make(map[string]bool, len(manifest.Ops))
	for i, op := range manifest.Ops {
		if op.Name != "" && seen[op.Name] {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   fmt.Sprintf("ExtensionManifest.Ops[%d].Name", i),
				Message: fmt.Sprintf("op %q declared twice", op.Name),
			})
		}
		seen[op.Name] = true
	}

	if v.ops != nil {
		for _, name := range v.ops.Missing(manifest.OpNames()...) {
			if name == "" {
				continue
			}
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   "ops",
				Message: fmt.Sprintf("op %q has no registered handler", name),
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// Err folds a failed result into a single error, or returns nil.
func Err(result *entities.ValidationResult) error {
	if result == nil || result.Valid {
		return nil
	}
	errs := make([]error, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Errorf("%s: %s", e.Field, e.Message))
	}
	return errors.Join(errs...)
}
