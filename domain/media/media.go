// Package media classifies module identifiers by file extension and maps each
// classification to a load decision.
package media

import (
	"path"
	"strings"

	"github.com/reglet-dev/runjs/domain/entities"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
)

// Type is the closed set of module media classifications.
type Type int

const (
	Unknown Type = iota
	JavaScript
	Mjs
	Cjs
	Jsx
	TypeScript
	Mts
	Cts
	Dts
	Dmts
	Dcts
	Tsx
	JSON
)

var typeNames = [...]string{
	Unknown:    "Unknown",
	JavaScript: "JavaScript",
	Mjs:        "Mjs",
	Cjs:        "Cjs",
	Jsx:        "JSX",
	TypeScript: "TypeScript",
	Mts:        "Mts",
	Cts:        "Cts",
	Dts:        "Dts",
	Dmts:       "Dmts",
	Dcts:       "Dcts",
	Tsx:        "TSX",
	JSON:       "Json",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[Unknown]
	}
	return typeNames[t]
}

// All lists every classification, Unknown last.
func All() []Type {
	return []Type{JavaScript, Mjs, Cjs, Jsx, TypeScript, Mts, Cts, Dts, Dmts, Dcts, Tsx, JSON, Unknown}
}

// Declaration suffixes are checked before plain extensions: "x.d.ts" is Dts, not TypeScript.
var declarationSuffixes = []struct {
	suffix string
	typ    Type
}{
	{".d.ts", Dts},
	{".d.mts", Dmts},
	{".d.cts", Dcts},
}

var byExtension = map[string]Type{
	".js":   JavaScript,
	".mjs":  Mjs,
	".cjs":  Cjs,
	".jsx":  Jsx,
	".ts":   TypeScript,
	".mts":  Mts,
	".cts":  Cts,
	".tsx":  Tsx,
	".json": JSON,
}

// FromPath classifies a slash-separated path (or URL path) by its extension.
// Matching is case-sensitive; anything outside the known set is Unknown.
func FromPath(p string) Type {
	base := path.Base(p)
	for _, d := range declarationSuffixes {
		if len(base) > len(d.suffix) && strings.HasSuffix(base, d.suffix) {
			return d.typ
		}
	}
	if t, ok := byExtension[path.Ext(base)]; ok {
		return t
	}
	return Unknown
}

// Decide maps a classification to how the module is evaluated and whether it
// must be transpiled. Unknown has no decision; identifier and extension only
// feed the returned *errors.ClassificationError.
func Decide(t Type, identifier string) (entities.LoadDecision, error) {
	switch t {
	case JavaScript, Mjs, Cjs:
		return entities.LoadDecision{Kind: entities.ModuleKindJavaScript}, nil
	case Jsx:
		return entities.LoadDecision{Kind: entities.ModuleKindJavaScript, NeedsTranspile: true}, nil
	case TypeScript, Mts, Cts, Dts, Dmts, Dcts, Tsx:
		return entities.LoadDecision{Kind: entities.ModuleKindJavaScript, NeedsTranspile: true}, nil
	case JSON:
		return entities.LoadDecision{Kind: entities.ModuleKindJSON}, nil
	default:
		return entities.LoadDecision{}, &domainerrors.ClassificationError{
			Identifier: identifier,
			Extension:  path.Ext(identifier),
		}
	}
}
