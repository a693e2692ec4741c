package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"

	domainerrors "github.com/reglet-dev/runjs/domain/errors"
)

type job func() error

// jobQueue is the FIFO the drain loop consumes. Any goroutine may post.
type jobQueue struct {
	mu   sync.Mutex
	jobs []job
	wake chan struct{}
}

func newJobQueue() *jobQueue {
	return &jobQueue{wake: make(chan struct{}, 1)}
}

func (q *jobQueue) post(j job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *jobQueue) take() []job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

// RunEventLoop runs queued jobs until no host call or timer is outstanding,
// a job fails, or ctx is done.
func (e *Engine) RunEventLoop(ctx context.Context) error {
	stop := e.interruptOn(ctx)
	defer stop()
	e.ctx = ctx

	for {
		if ctx.Err() != nil {
			return e.interrupted(ctx)
		}

		jobs := e.queue.take()
		if len(jobs) == 0 {
			if e.pending == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return e.interrupted(ctx)
			case <-e.queue.wake:
			}
			continue
		}

		for _, j := range jobs {
			if err := j(); err != nil {
				return err
			}
		}
	}
}

// interruptOn makes cancellation of ctx stop any script that is running.
// The returned func must be called once the VM is idle again.
func (e *Engine) interruptOn(ctx context.Context) func() {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		e.vm.Interrupt(context.Cause(ctx))
		close(fired)
	})
	return func() {
		if !stop() {
			<-fired
			e.vm.ClearInterrupt()
		}
	}
}

func (e *Engine) interrupted(ctx context.Context) error {
	return &domainerrors.EvaluationError{
		Identifier: e.entry,
		Message:    "evaluation interrupted",
		Err:        context.Cause(ctx),
	}
}

type timer struct {
	t *time.Timer
}

func (e *Engine) jsSetTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(e.vm.NewTypeError("setTimeout: callback is not a function"))
	}
	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	e.nextTimer++
	id := e.nextTimer
	tm := &timer{}
	e.timers[id] = tm
	e.pending++

	tm.t = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		e.queue.post(func() error {
			if _, live := e.timers[id]; !live {
				return nil
			}
			delete(e.timers, id)
			e.pending--
			if _, err := fn(goja.Undefined(), args...); err != nil {
				return e.scriptError(err)
			}
			return nil
		})
	})
	return e.vm.ToValue(id)
}

func (e *Engine) jsClearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if tm, ok := e.timers[id]; ok {
		tm.t.Stop()
		delete(e.timers, id)
		e.pending--
	}
	return goja.Undefined()
}
