package ports

import (
	"context"
	"net/url"

	"github.com/reglet-dev/runjs/domain/entities"
)

// SpecifierResolver turns an import specifier into an absolute module identifier.
// Implementations are purely syntactic and never touch the filesystem.
type SpecifierResolver interface {
	// Resolve joins specifier onto referrer, the identifier of the importing module.
	Resolve(specifier, referrer string) (*url.URL, error)
}

// ModuleLoader produces the executable source of one module.
// Implementations must be safe for concurrent use: the linker loads sibling
// imports in parallel.
type ModuleLoader interface {
	Load(ctx context.Context, identifier *url.URL) (*entities.ModuleSource, error)
}
