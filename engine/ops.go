package engine

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/reglet-dev/runjs/hostfuncs"
)

// OpError is the rejection reason of a host op that answered with an
// ErrorResponse payload.
type OpError struct {
	Op      string
	Kind    string
	Code    int
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.Code, e.Message)
}

type hostCall struct {
	ctx     context.Context
	op      string
	payload []byte
	done    func(resp []byte, err error)
}

// hostWorker runs host calls one at a time, in the order they were issued.
func (e *Engine) hostWorker() {
	defer close(e.workerDone)
	for c := range e.calls {
		resp, err := e.config.ops.Invoke(c.ctx, c.op, c.payload)
		c.done(resp, err)
	}
}

// jsHostCall is host.call(op, payload): it hands the call to the worker and
// returns a promise settled from the job queue.
func (e *Engine) jsHostCall(call goja.FunctionCall) goja.Value {
	op := call.Argument(0).String()
	var payload []byte
	if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
		payload = []byte(arg.String())
	}

	promise, resolve, reject := e.vm.NewPromise()
	e.nextCall++
	e.pending++

	e.calls <- hostCall{
		ctx:     hostfuncs.NewHostContext(e.ctx, op, e.nextCall),
		op:      op,
		payload: payload,
		done: func(resp []byte, err error) {
			e.queue.post(func() error {
				e.pending--
				if err != nil {
					reject(e.vm.NewGoError(fmt.Errorf("%s: %w", op, err)))
					return nil
				}
				if er, isErr := hostfuncs.ParseErrorResponse(resp); isErr {
					reject(e.vm.NewGoError(&OpError{Op: op, Kind: er.Error, Code: er.Code, Message: er.Message}))
					return nil
				}
				resolve(string(resp))
				return nil
			})
		},
	}
	return e.vm.ToValue(promise)
}

// jsPrint is host.print(level, text), the sink of the console global.
func (e *Engine) jsPrint(call goja.FunctionCall) goja.Value {
	w := e.config.stdout
	switch call.Argument(0).String() {
	case "warn", "error":
		w = e.config.stderr
	}
	fmt.Fprintln(w, call.Argument(1).String())
	return goja.Undefined()
}

// noOps stands in when no ops were configured; it provides nothing.
type noOps struct{}

func (noOps) Invoke(_ context.Context, name string, _ []byte) ([]byte, error) {
	return hostfuncs.NewNotFoundError(name).ToJSON(), nil
}

func (noOps) Missing(names ...string) []string {
	return names
}
