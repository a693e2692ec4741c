package ports

import "github.com/reglet-dev/runjs/domain/entities"

// ManifestValidator checks an extension manifest against the ops the host registered.
type ManifestValidator interface {
	// Validate reports every structural problem and every declared op with no handler.
	Validate(manifest *entities.ExtensionManifest) (*entities.ValidationResult, error)
}
