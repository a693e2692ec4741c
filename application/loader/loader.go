// Package loader implements the module loading pipeline:
// locate -> classify -> read -> transpile -> package.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"unicode/utf8"

	"github.com/reglet-dev/runjs/application/resolver"
	"github.com/reglet-dev/runjs/domain/entities"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/domain/media"
	"github.com/reglet-dev/runjs/domain/ports"
)

var (
	// ErrInvalidUTF8 is the cause of an IoError for files that are not UTF-8 text.
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

	// ErrNoTranspiler is the cause of a TranspileError when a module needs
	// transpiling and the Loader was built without WithTranspiler.
	ErrNoTranspiler = errors.New("no transpiler configured")
)

// ReadFileFunc reads a whole file. It matches os.ReadFile.
type ReadFileFunc func(name string) ([]byte, error)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	transpiler ports.Transpiler
	readFile   ReadFileFunc
	logger     *slog.Logger
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		readFile: os.ReadFile,
	}
}

// Option configures the Loader.
type Option func(*loaderConfig)

// WithTranspiler sets the transpiler used for sources that need it.
func WithTranspiler(t ports.Transpiler) Option {
	return func(c *loaderConfig) {
		c.transpiler = t
	}
}

// WithReadFile replaces the function used to read module files.
func WithReadFile(fn ReadFileFunc) Option {
	return func(c *loaderConfig) {
		c.readFile = fn
	}
}

// WithLogger sets the logger for per-module debug records.
func WithLogger(l *slog.Logger) Option {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// Loader implements ports.ModuleLoader. It holds no per-load state, so any
// number of loads may run concurrently.
type Loader struct {
	config loaderConfig
}

var _ ports.ModuleLoader = (*Loader)(nil)

// New creates a Loader. Without WithTranspiler it can load only modules that
// need no transpiling.
func New(opts ...Option) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{config: cfg}
}

// Load reads, classifies and (when needed) transpiles the module named by identifier.
// Two loads of the same identifier are independent: nothing is cached.
func (l *Loader) Load(ctx context.Context, identifier *url.URL) (*entities.ModuleSource, error) {
	if identifier == nil || !identifier.IsAbs() {
		return nil, &domainerrors.IoError{Op: "locate", Err: fmt.Errorf("identifier must be absolute, got %v", identifier)}
	}
	id := identifier.String()

	path, err := resolver.ToFilePath(identifier)
	if err != nil {
		return nil, &domainerrors.IoError{Identifier: id, Op: "locate", Err: err}
	}

	mediaType := media.FromPath(identifier.Path)
	decision, err := media.Decide(mediaType, id)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, &domainerrors.IoError{Identifier: id, Op: "read", Err: err}
	}
	raw, err := l.config.readFile(path)
	if err != nil {
		return nil, &domainerrors.IoError{Identifier: id, Op: "read", Err: err}
	}
	if !utf8.Valid(raw) {
		return nil, &domainerrors.IoError{Identifier: id, Op: "decode", Err: ErrInvalidUTF8}
	}

	code := string(raw)
	if decision.NeedsTranspile {
		if l.config.transpiler == nil {
			return nil, &domainerrors.TranspileError{Identifier: id, MediaType: mediaType.String(), Err: ErrNoTranspiler}
		}
		code, err = l.config.transpiler.Transpile(ctx, code, mediaType, id)
		if err != nil {
			return nil, err
		}
	}

	l.config.logger.DebugContext(ctx, "module loaded",
		slog.String("identifier", id),
		slog.String("media_type", mediaType.String()),
		slog.String("kind", decision.Kind.String()),
		slog.Bool("transpiled", decision.NeedsTranspile),
		slog.Int("bytes", len(code)),
	)

	return &entities.ModuleSource{
		Identifier: id,
		Code:       code,
		Kind:       decision.Kind,
		MediaType:  mediaType.String(),
	}, nil
}
