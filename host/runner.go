package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/reglet-dev/runjs/application/loader"
	"github.com/reglet-dev/runjs/application/resolver"
	"github.com/reglet-dev/runjs/domain/entities"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/engine"
	"github.com/reglet-dev/runjs/host/registry"
	"github.com/reglet-dev/runjs/hostfuncs"
	"github.com/reglet-dev/runjs/infrastructure/transpiler"
	runjslog "github.com/reglet-dev/runjs/log"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("runner has already been used")

// Runner executes one entry script.
type Runner struct {
	config   runnerConfig
	resolver *resolver.Resolver
	ops      *hostfuncs.HandlerRegistry
	schemas  *registry.Registry

	mu    sync.Mutex
	state entities.RunState
	err   error
}

// NewRunner validates the options and registers the host ops.
func NewRunner(opts ...Option) (*Runner, error) {
	cfg := defaultRunnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.run.Validate(); err != nil {
		return nil, err
	}
	cfg.logger = runjslog.OrDiscard(cfg.logger)
	if cfg.buffer == nil {
		cfg.buffer = hostfuncs.ProcessBuffer()
	}
	if cfg.loader == nil {
		cfg.loader = loader.New(
			loader.WithLogger(cfg.logger),
			loader.WithTranspiler(transpiler.New(transpiler.WithJSXFactory(cfg.run.JSXFactory, cfg.run.JSXFragment))),
		)
	}

	regOpts := []hostfuncs.RegistryOption{
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(cfg.logger),
		),
		hostfuncs.WithBundle(hostfuncs.BufferBundle(cfg.buffer)),
	}
	for _, b := range cfg.bundles {
		regOpts = append(regOpts, hostfuncs.WithBundle(b))
	}
	ops, err := hostfuncs.NewRegistry(regOpts...)
	if err != nil {
		return nil, fmt.Errorf("register host ops: %w", err)
	}

	schemas := registry.NewRegistry()
	for op, models := range hostfuncs.BufferSchemas() {
		if err := schemas.RegisterOp(op, models[0], models[1]); err != nil {
			return nil, err
		}
	}

	return &Runner{
		config:   cfg,
		resolver: resolver.New(),
		ops:      ops,
		schemas:  schemas,
		state:    entities.RunStateIdle,
	}, nil
}

// Run executes the script at entryPath and waits until it has no work left.
// A Runner runs once; the outcome stays available through State and Err.
func (r *Runner) Run(ctx context.Context, entryPath string) error {
	r.mu.Lock()
	if r.state != entities.RunStateIdle {
		r.mu.Unlock()
		return ErrAlreadyRun
	}
	r.state = entities.RunStateRunning
	r.mu.Unlock()

	start := time.Now()
	err := r.run(ctx, entryPath)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.state = entities.RunStateFailed
		r.err = err
		detail := domainerrors.ToErrorDetail(err)
		r.config.logger.DebugContext(ctx, "run failed",
			slog.String("entry", entryPath),
			slog.String("type", detail.Type),
			slog.String("code", detail.Code),
			slog.Any("error", err),
		)
		return err
	}
	r.state = entities.RunStateCompleted
	r.config.logger.DebugContext(ctx, "run completed",
		slog.String("entry", entryPath),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("buffer_bytes", r.config.buffer.Len()),
	)
	return nil
}

func (r *Runner) run(ctx context.Context, entryPath string) error {
	eng, err := engine.New(
		engine.WithOps(r.ops),
		engine.WithResolver(r.resolver),
		engine.WithLoader(r.config.loader),
		engine.WithConfig(r.config.run),
		engine.WithLogger(r.config.logger),
		engine.WithStdout(r.config.stdout),
		engine.WithStderr(r.config.stderr),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()

	cwd := r.config.workDir
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}
	id, err := r.resolver.ResolvePath(entryPath, cwd)
	if err != nil {
		return err
	}

	if err := eng.LoadMainModule(ctx, id); err != nil {
		return err
	}
	if err := eng.Evaluate(ctx); err != nil {
		return err
	}
	if err := eng.RunEventLoop(ctx); err != nil {
		return err
	}
	return eng.Result()
}

// State reports where the run is.
func (r *Runner) State() entities.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error a failed run ended with.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Buffer returns the buffer the ops write to.
func (r *Runner) Buffer() *hostfuncs.HostBuffer {
	return r.config.buffer
}

// OpDescription names a host op and the JSON schemas of its payloads.
type OpDescription struct {
	Name     string `json:"name"`
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
}

// Describe lists every registered host op, sorted by name.
func (r *Runner) Describe() []OpDescription {
	names := r.ops.Names()
	out := make([]OpDescription, 0, len(names))
	for _, name := range names {
		d := OpDescription{Name: name}
		d.Request, _ = r.schemas.GetSchema(name + registry.RequestSuffix)
		d.Response, _ = r.schemas.GetSchema(name + registry.ResponseSuffix)
		out = append(out, d)
	}
	return out
}
