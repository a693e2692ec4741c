package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/reglet-dev/runjs/config"
	"github.com/reglet-dev/runjs/domain/entities"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/infrastructure/transpiler"
)

// moduleNamespace is the esbuild namespace every linked module lives in.
// Paths inside it are module identifiers.
const moduleNamespace = "runjs"

// LoadMainModule links the graph rooted at id into one program.
// Every module is resolved and loaded through the configured resolver and
// loader; the first failure aborts linking and is returned wrapped in an
// EvaluationError.
func (e *Engine) LoadMainModule(ctx context.Context, id *url.URL) error {
	if id == nil || !id.IsAbs() {
		return &domainerrors.IoError{Op: "locate", Err: fmt.Errorf("main module identifier must be absolute, got %v", id)}
	}
	if e.program != nil {
		return errors.New("engine: main module already loaded")
	}
	entry := id.String()
	if err := ctx.Err(); err != nil {
		return &domainerrors.EvaluationError{Identifier: entry, Message: "evaluation interrupted", Err: err}
	}

	l := &linker{engine: e, ctx: ctx}
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   fmt.Sprintf("import %q;\n", entry),
			Sourcefile: "<main>",
			Loader:     api.LoaderJS,
		},
		Bundle:   true,
		Write:    false,
		Format:   api.FormatESModule,
		Platform: api.PlatformNeutral,
		Target:   e.config.target,
		Charset:  api.CharsetUTF8,
		Supported: map[string]bool{
			"top-level-await": true,
			"import-meta":     false,
		},
		LogLevel: api.LogLevelSilent,
		// import.meta.url is substituted per module in onLoad; anything else
		// read from import.meta would silently become {}.
		LogOverride: map[string]api.LogLevel{"empty-import-meta": api.LogLevelError},
		Plugins:     []api.Plugin{l.plugin()},
	})

	if len(result.Errors) > 0 {
		if cause := l.failure(); cause != nil {
			return &domainerrors.EvaluationError{Identifier: entry, Err: cause}
		}
		return &domainerrors.EvaluationError{
			Identifier: entry,
			Message:    "link failed: " + strings.Join(transpiler.FormatMessages(result.Errors), "; "),
		}
	}
	if len(result.OutputFiles) == 0 {
		return &domainerrors.EvaluationError{Identifier: entry, Message: "link produced no output"}
	}

	code := "(async () => {\n" + string(result.OutputFiles[0].Contents) + "\n})()"
	prog, err := goja.Compile(entry, code, true)
	if err != nil {
		return &domainerrors.EvaluationError{Identifier: entry, Err: err}
	}

	e.entry = entry
	e.program = prog
	e.config.logger.DebugContext(ctx, "module graph linked",
		slog.String("entry", entry),
		slog.Int("modules", l.loaded()),
		slog.Int("bytes", len(code)),
	)
	for _, w := range result.Warnings {
		e.config.logger.DebugContext(ctx, "linker warning", slog.String("message", w.Text))
	}
	return nil
}

// linker adapts the resolver and loader to esbuild's plugin callbacks, which
// run concurrently.
type linker struct {
	engine *Engine
	ctx    context.Context

	mu      sync.Mutex
	err     error
	modules int
}

func (l *linker) plugin() api.Plugin {
	return api.Plugin{
		Name: "runjs",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, l.onResolve)
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: moduleNamespace}, l.onLoad)
		},
	}
}

func (l *linker) onResolve(args api.OnResolveArgs) (api.OnResolveResult, error) {
	referrer := ""
	if args.Namespace == moduleNamespace {
		referrer = args.Importer
	}

	u, err := l.engine.config.resolver.Resolve(args.Path, referrer)
	if err != nil {
		return api.OnResolveResult{}, l.fail(err)
	}
	return api.OnResolveResult{Path: u.String(), Namespace: moduleNamespace}, nil
}

func (l *linker) onLoad(args api.OnLoadArgs) (api.OnLoadResult, error) {
	u, err := url.Parse(args.Path)
	if err != nil {
		return api.OnLoadResult{}, l.fail(&domainerrors.IoError{Identifier: args.Path, Op: "locate", Err: err})
	}

	src, err := l.engine.config.loader.Load(l.ctx, u)
	if err != nil {
		var classErr *domainerrors.ClassificationError
		if errors.As(err, &classErr) && l.engine.config.unknownMedia == config.UnknownMediaSkip {
			l.engine.config.logger.WarnContext(l.ctx, "skipping module with unknown media type",
				slog.String("identifier", args.Path),
				slog.String("extension", classErr.Extension),
			)
			empty := ""
			return api.OnLoadResult{Contents: &empty, Loader: api.LoaderJS}, nil
		}
		return api.OnLoadResult{}, l.fail(err)
	}

	l.mu.Lock()
	l.modules++
	l.mu.Unlock()

	if src.Kind == entities.ModuleKindJSON {
		return api.OnLoadResult{Contents: &src.Code, Loader: api.LoaderJSON}, nil
	}
	code, err := defineImportMetaURL(src.Code, src.Identifier)
	if err != nil {
		return api.OnLoadResult{}, l.fail(err)
	}
	return api.OnLoadResult{Contents: &code, Loader: api.LoaderJS}, nil
}

// defineImportMetaURL replaces import.meta.url with the module's identifier.
// The linker bundles every module into one script, so the value has to be
// fixed per module before linking.
func defineImportMetaURL(code, identifier string) (string, error) {
	if !strings.Contains(code, "import.meta") {
		return code, nil
	}
	quoted, err := json.Marshal(identifier)
	if err != nil {
		return "", err
	}

	result := api.Transform(code, api.TransformOptions{
		Loader:     api.LoaderJS,
		Format:     api.FormatESModule,
		Target:     api.ESNext,
		Sourcefile: identifier,
		Define:     map[string]string{"import.meta.url": string(quoted)},
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", &domainerrors.TranspileError{
			Identifier: identifier,
			MediaType:  "JavaScript",
			Messages:   transpiler.FormatMessages(result.Errors),
		}
	}
	return string(result.Code), nil
}

// fail records the first error so it can be returned with its type intact.
func (l *linker) fail(err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
	return err
}

func (l *linker) failure() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *linker) loaded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.modules
}
