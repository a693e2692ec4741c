package entities

// ExtensionManifest declares the host ops a bootstrap script relies on and the
// scripts that install the script-facing API on top of them.
type ExtensionManifest struct {
	Name string   `yaml:"name" validate:"required,alphanum"`
	Ops  []OpSpec `yaml:"ops" validate:"required,min=1,dive"`
	ESM  []string `yaml:"esm" validate:"dive,required,endswith=.js"`
	Docs string   `yaml:"docs,omitempty"`
}

// OpSpec describes one host op as seen by scripts.
type OpSpec struct {
	Name  string `yaml:"name" validate:"required,alphanum"`
	Async bool   `yaml:"async"`
}

// OpNames returns the declared op names in manifest order.
func (m *ExtensionManifest) OpNames() []string {
	names := make([]string, 0, len(m.Ops))
	for _, op := range m.Ops {
		names = append(names, op.Name)
	}
	return names
}

// ValidationResult represents the outcome of a manifest validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a specific validation error.
type ValidationError struct {
	Field   string
	Message string
}
