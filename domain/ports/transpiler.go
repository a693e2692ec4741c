package ports

import (
	"context"

	"github.com/reglet-dev/runjs/domain/media"
)

// Transpiler converts source in a non-executable dialect into plain script code.
// It must be a pure function of its inputs.
type Transpiler interface {
	Transpile(ctx context.Context, source string, mediaType media.Type, identifier string) (string, error)
}
