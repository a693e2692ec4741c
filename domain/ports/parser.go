package ports

import "github.com/reglet-dev/runjs/domain/entities"

// ManifestParser parses raw YAML bytes into an ExtensionManifest.
type ManifestParser interface {
	// Parse unmarshals YAML bytes into an ExtensionManifest struct.
	Parse(data []byte) (*entities.ExtensionManifest, error)
}
