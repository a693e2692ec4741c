package entities

// ModuleKind tells the engine how to evaluate a module's code.
type ModuleKind int

const (
	// ModuleKindJavaScript is executable script code.
	ModuleKindJavaScript ModuleKind = iota

	// ModuleKindJSON is a data module; the engine parses it itself.
	ModuleKindJSON
)

func (k ModuleKind) String() string {
	switch k {
	case ModuleKindJavaScript:
		return "javascript"
	case ModuleKindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ModuleSource is the result of loading one module.
// It is produced once per load call and never cached.
type ModuleSource struct {
	// Identifier is the canonical absolute locator the code was loaded from.
	Identifier string

	// Code is the executable text (transpiled when the source needed it).
	Code string

	// Kind selects between script and data evaluation.
	Kind ModuleKind

	// MediaType names the dialect the source was classified as, e.g. "TypeScript".
	MediaType string
}

// LoadDecision is the evaluation kind of a media type plus whether its
// source must be transpiled first.
type LoadDecision struct {
	Kind           ModuleKind
	NeedsTranspile bool
}
