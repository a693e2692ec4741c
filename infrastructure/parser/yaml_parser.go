// Package parser reads extension manifests.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/runjs/domain/entities"
	"github.com/reglet-dev/runjs/domain/ports"
)

// ErrEmptyManifest is returned for a document with no content.
var ErrEmptyManifest = errors.New("manifest is empty")

// YamlManifestParser implements ManifestParser for YAML.
type YamlManifestParser struct{}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser() ports.ManifestParser {
	return &YamlManifestParser{}
}

// Parse unmarshals YAML bytes into an ExtensionManifest.
// Unknown keys are rejected so a misspelled field does not silently drop an op.
func (p *YamlManifestParser) Parse(data []byte) (*entities.ExtensionManifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var manifest entities.ExtensionManifest
	if err := dec.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyManifest
		}
		return nil, fmt.Errorf("parse extension manifest: %w", err)
	}
	return &manifest, nil
}
