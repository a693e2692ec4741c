// Package bootstrap carries the extension that installs the script-facing API.
package bootstrap

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/reglet-dev/runjs/domain/entities"
	"github.com/reglet-dev/runjs/infrastructure/parser"
)

// ManifestFile is the manifest's name inside an extension filesystem.
const ManifestFile = "extension.yaml"

//go:embed extension.yaml runtime.js
var files embed.FS

// FS returns the built-in extension.
func FS() fs.FS {
	return files
}

// Script is one bootstrap script, ready to run.
type Script struct {
	Name   string
	Source string
}

// Extension is a parsed manifest together with its scripts.
type Extension struct {
	Manifest *entities.ExtensionManifest
	Scripts  []Script
}

// Load parses the manifest of fsys and reads every script it lists, in order.
// It does not check ops against a registry; see application/validation.
func Load(fsys fs.FS) (*Extension, error) {
	raw, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestFile, err)
	}

	manifest, err := parser.NewYamlManifestParser().Parse(raw)
	if err != nil {
		return nil, err
	}

	ext := &Extension{Manifest: manifest}
	for _, name := range manifest.ESM {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("extension %s: read %s: %w", manifest.Name, name, err)
		}
		ext.Scripts = append(ext.Scripts, Script{Name: manifest.Name + ":" + name, Source: string(src)})
	}
	return ext, nil
}
