package engine

import (
	"context"
	"io"
	"io/fs"
	"log/slog"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/reglet-dev/runjs/application/loader"
	"github.com/reglet-dev/runjs/application/resolver"
	"github.com/reglet-dev/runjs/config"
	"github.com/reglet-dev/runjs/domain/ports"
	"github.com/reglet-dev/runjs/engine/bootstrap"
	"github.com/reglet-dev/runjs/infrastructure/transpiler"
	runjslog "github.com/reglet-dev/runjs/log"
)

// OpInvoker dispatches host op calls by name.
// *hostfuncs.HandlerRegistry satisfies it.
type OpInvoker interface {
	Invoke(ctx context.Context, name string, payload []byte) ([]byte, error)
	Missing(names ...string) []string
}

// engineConfig holds configuration for the Engine.
type engineConfig struct {
	resolver     ports.SpecifierResolver
	loader       ports.ModuleLoader
	ops          OpInvoker
	logger       *slog.Logger
	stdout       io.Writer
	stderr       io.Writer
	unknownMedia config.UnknownMediaPolicy
	target       api.Target
	extension    fs.FS
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		stdout:       io.Discard,
		stderr:       io.Discard,
		unknownMedia: config.UnknownMediaAbort,
		target:       api.ES2017,
		extension:    bootstrap.FS(),
	}
}

// Option configures the Engine.
type Option func(*engineConfig)

// WithResolver sets the specifier resolver used while linking.
func WithResolver(r ports.SpecifierResolver) Option {
	return func(c *engineConfig) {
		c.resolver = r
	}
}

// WithLoader sets the module loader used while linking.
func WithLoader(l ports.ModuleLoader) Option {
	return func(c *engineConfig) {
		c.loader = l
	}
}

// WithOps sets the host ops scripts can call. Every op the extension
// manifest declares must be present.
func WithOps(ops OpInvoker) Option {
	return func(c *engineConfig) {
		c.ops = ops
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithStdout sets where console.log, console.info and console.debug write.
func WithStdout(w io.Writer) Option {
	return func(c *engineConfig) {
		c.stdout = w
	}
}

// WithStderr sets where console.warn and console.error write.
func WithStderr(w io.Writer) Option {
	return func(c *engineConfig) {
		c.stderr = w
	}
}

// WithUnknownMediaPolicy chooses what an import of an unclassifiable module does.
func WithUnknownMediaPolicy(p config.UnknownMediaPolicy) Option {
	return func(c *engineConfig) {
		c.unknownMedia = p
	}
}

// WithTarget sets the language level the linked program is lowered to.
func WithTarget(t api.Target) Option {
	return func(c *engineConfig) {
		c.target = t
	}
}

// WithExtension replaces the built-in extension filesystem.
func WithExtension(fsys fs.FS) Option {
	return func(c *engineConfig) {
		c.extension = fsys
	}
}

// WithConfig applies the run options of cfg.
func WithConfig(cfg config.Config) Option {
	return func(c *engineConfig) {
		c.unknownMedia = cfg.UnknownMedia
		c.target = cfg.EsbuildTarget()
	}
}

func (c *engineConfig) fillDefaults() {
	c.logger = runjslog.OrDiscard(c.logger)
	if c.resolver == nil {
		c.resolver = resolver.New()
	}
	if c.loader == nil {
		c.loader = loader.New(
			loader.WithLogger(c.logger),
			loader.WithTranspiler(transpiler.New()),
		)
	}
	if c.stdout == nil {
		c.stdout = io.Discard
	}
	if c.stderr == nil {
		c.stderr = io.Discard
	}
}
