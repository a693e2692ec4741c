package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/dop251/goja"

	"github.com/reglet-dev/runjs/application/validation"
	"github.com/reglet-dev/runjs/config"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/engine/bootstrap"
)

// hostGlobal is the temporary global the bootstrap scripts receive the raw
// ops through. It is removed before any module code runs.
const hostGlobal = "__runjs"

// Engine is one script VM with its linker, host op worker and job queue.
// It is not safe for concurrent use; the goroutine that calls Evaluate owns it.
type Engine struct {
	config    engineConfig
	extension *bootstrap.Extension

	vm         *goja.Runtime
	queue      *jobQueue
	calls      chan hostCall
	workerDone chan struct{}
	closeOnce  sync.Once

	// Owned by the loop goroutine.
	ctx       context.Context
	pending   int
	nextCall  uint64
	nextTimer int64
	timers    map[int64]*timer
	unhandled []*goja.Promise

	entry   string
	program *goja.Program
	promise *goja.Promise
}

// New builds an engine and runs the extension's bootstrap scripts.
// It fails when the extension declares an op that WithOps does not provide.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.fillDefaults()

	switch cfg.unknownMedia {
	case config.UnknownMediaAbort, config.UnknownMediaSkip:
	default:
		return nil, &domainerrors.ConfigError{Field: "UnknownMedia", Err: fmt.Errorf("unknown policy %q", cfg.unknownMedia)}
	}

	ext, err := bootstrap.Load(cfg.extension)
	if err != nil {
		return nil, fmt.Errorf("load extension: %w", err)
	}
	if cfg.ops == nil {
		cfg.ops = noOps{}
	}
	result, err := validation.NewManifestValidator(cfg.ops).Validate(ext.Manifest)
	if err != nil {
		return nil, err
	}
	if err := validation.Err(result); err != nil {
		return nil, fmt.Errorf("extension %s: %w", ext.Manifest.Name, err)
	}

	e := &Engine{
		config:     cfg,
		extension:  ext,
		vm:         goja.New(),
		queue:      newJobQueue(),
		calls:      make(chan hostCall, 64),
		workerDone: make(chan struct{}),
		ctx:        context.Background(),
		timers:     make(map[int64]*timer),
	}
	go e.hostWorker()

	if err := e.install(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) install() error {
	e.vm.SetPromiseRejectionTracker(e.trackRejection)

	host := e.vm.NewObject()
	if err := host.Set("call", e.jsHostCall); err != nil {
		return err
	}
	if err := host.Set("print", e.jsPrint); err != nil {
		return err
	}
	globals := []struct {
		name  string
		value interface{}
	}{
		{hostGlobal, host},
		{"setTimeout", e.jsSetTimeout},
		{"clearTimeout", e.jsClearTimeout},
	}
	for _, g := range globals {
		if err := e.vm.Set(g.name, g.value); err != nil {
			return err
		}
	}

	for _, s := range e.extension.Scripts {
		if _, err := e.vm.RunScript(s.Name, s.Source); err != nil {
			return fmt.Errorf("bootstrap %s: %w", s.Name, err)
		}
	}
	return e.vm.GlobalObject().Delete(hostGlobal)
}

// Run links, evaluates and drains the module graph rooted at id.
func (e *Engine) Run(ctx context.Context, id *url.URL) error {
	if err := e.LoadMainModule(ctx, id); err != nil {
		return err
	}
	if err := e.Evaluate(ctx); err != nil {
		return err
	}
	if err := e.RunEventLoop(ctx); err != nil {
		return err
	}
	return e.Result()
}

// Evaluate starts the linked program. Its completion is observed through
// RunEventLoop and Result.
func (e *Engine) Evaluate(ctx context.Context) error {
	if e.program == nil {
		return errors.New("engine: no main module loaded")
	}
	if e.promise != nil {
		return errors.New("engine: main module already evaluated")
	}

	stop := e.interruptOn(ctx)
	defer stop()
	e.ctx = ctx

	v, err := e.vm.RunProgram(e.program)
	if err != nil {
		return e.scriptError(err)
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return &domainerrors.EvaluationError{Identifier: e.entry, Message: "main module did not evaluate to a promise"}
	}
	e.promise = p
	return nil
}

// Result reports how the main module finished once the loop has drained.
func (e *Engine) Result() error {
	if e.promise == nil {
		return errors.New("engine: main module not evaluated")
	}

	switch e.promise.State() {
	case goja.PromiseStateRejected:
		return e.rejectionError(e.promise.Result(), "Uncaught ")
	case goja.PromiseStatePending:
		return &domainerrors.EvaluationError{
			Identifier: e.entry,
			Message:    "evaluation stalled: top-level await never settled",
		}
	}

	for _, p := range e.unhandled {
		if p == e.promise {
			continue
		}
		return e.rejectionError(p.Result(), "Uncaught (in promise) ")
	}
	return nil
}

// Pending reports the number of outstanding host calls and timers.
func (e *Engine) Pending() int {
	return e.pending
}

// Close stops the host worker and every outstanding timer.
// It must be called from the goroutine that owns the engine.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.calls)
		<-e.workerDone
		for id, t := range e.timers {
			t.t.Stop()
			delete(e.timers, id)
		}
	})
}

func (e *Engine) scriptError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		ee := &domainerrors.EvaluationError{Identifier: e.entry, Message: "evaluation interrupted"}
		if cause, ok := interrupted.Value().(error); ok {
			ee.Err = cause
		}
		return ee
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		ee := e.rejectionError(exc.Value(), "Uncaught ")
		if ee.Stack == "" {
			ee.Stack = exc.String()
		}
		return ee
	}
	return &domainerrors.EvaluationError{Identifier: e.entry, Err: err}
}

// rejectionError turns a thrown or rejected script value into an
// EvaluationError. Go errors carried by GoError objects stay reachable
// through Unwrap.
func (e *Engine) rejectionError(reason goja.Value, prefix string) *domainerrors.EvaluationError {
	if reason == nil {
		reason = goja.Undefined()
	}
	ee := &domainerrors.EvaluationError{Identifier: e.entry}

	if obj, ok := reason.(*goja.Object); ok {
		if st := obj.Get("stack"); st != nil && !goja.IsUndefined(st) {
			ee.Stack = st.String()
		}
		if v := obj.Get("value"); v != nil {
			if cause, ok := v.Export().(error); ok {
				ee.Err = cause
			}
		}
	}
	ee.Message = prefix + describe(reason)
	return ee
}

func (e *Engine) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		e.unhandled = append(e.unhandled, p)
	case goja.PromiseRejectionHandle:
		for i, q := range e.unhandled {
			if q == p {
				e.unhandled = append(e.unhandled[:i], e.unhandled[i+1:]...)
				break
			}
		}
	}
}

// describe renders a script value; a throwing toString yields a placeholder.
func describe(v goja.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = "[unprintable value]"
		}
	}()
	return v.String()
}
