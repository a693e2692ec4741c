// Package transpiler adapts esbuild's transform API to the ports.Transpiler contract.
package transpiler

import (
	"context"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/domain/media"
	"github.com/reglet-dev/runjs/domain/ports"
)

// transpilerConfig holds configuration for the Esbuild transpiler.
type transpilerConfig struct {
	jsxFactory  string
	jsxFragment string
	target      api.Target
}

func defaultTranspilerConfig() transpilerConfig {
	return transpilerConfig{
		jsxFactory:  "React.createElement",
		jsxFragment: "React.Fragment",
		target:      api.ESNext, // strip syntax only, the linker lowers
	}
}

// Option configures the Esbuild transpiler.
type Option func(*transpilerConfig)

// WithJSXFactory sets the function JSX elements compile to.
func WithJSXFactory(factory, fragment string) Option {
	return func(c *transpilerConfig) {
		c.jsxFactory = factory
		c.jsxFragment = fragment
	}
}

// WithTarget sets the language level of the emitted code.
func WithTarget(target api.Target) Option {
	return func(c *transpilerConfig) {
		c.target = target
	}
}

// Esbuild implements ports.Transpiler with esbuild's Transform.
// It keeps import and export statements intact.
type Esbuild struct {
	config transpilerConfig
}

var _ ports.Transpiler = (*Esbuild)(nil)

// New creates an Esbuild transpiler.
func New(opts ...Option) *Esbuild {
	cfg := defaultTranspilerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Esbuild{config: cfg}
}

// Transpile converts TypeScript, TSX and JSX into plain script code.
func (e *Esbuild) Transpile(ctx context.Context, source string, mediaType media.Type, identifier string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domainerrors.TranspileError{Identifier: identifier, MediaType: mediaType.String(), Err: err}
	}

	loader, ok := LoaderFor(mediaType)
	if !ok {
		return "", &domainerrors.TranspileError{
			Identifier: identifier,
			MediaType:  mediaType.String(),
			Err:        fmt.Errorf("no transform for media type %s", mediaType),
		}
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:      loader,
		Format:      api.FormatESModule,
		Target:      e.config.target,
		Sourcefile:  identifier,
		JSX:         api.JSXTransform,
		JSXFactory:  e.config.jsxFactory,
		JSXFragment: e.config.jsxFragment,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", &domainerrors.TranspileError{
			Identifier: identifier,
			MediaType:  mediaType.String(),
			Messages:   FormatMessages(result.Errors),
		}
	}
	return string(result.Code), nil
}

// LoaderFor maps a media type to the esbuild loader that parses it.
func LoaderFor(t media.Type) (api.Loader, bool) {
	switch t {
	case media.JavaScript, media.Mjs, media.Cjs:
		return api.LoaderJS, true
	case media.Jsx:
		return api.LoaderJSX, true
	case media.TypeScript, media.Mts, media.Cts, media.Dts, media.Dmts, media.Dcts:
		return api.LoaderTS, true
	case media.Tsx:
		return api.LoaderTSX, true
	case media.JSON:
		return api.LoaderJSON, true
	default:
		return api.LoaderNone, false
	}
}

// FormatMessages renders esbuild diagnostics as "file:line:col: text".
func FormatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location == nil {
			out = append(out, m.Text)
			continue
		}
		out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
	}
	return out
}
