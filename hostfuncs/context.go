package hostfuncs

import (
	"context"
)

// HostContext is the context a host operation runs under.
// It names the operation and the sequence number the engine gave the call.
type HostContext interface {
	context.Context

	// FunctionName returns the name of the host function being invoked.
	FunctionName() string

	// CallID returns the engine-assigned sequence number, or 0 outside the engine.
	CallID() uint64
}

type hostContext struct {
	context.Context
	funcName string
	callID   uint64
}

// NewHostContext creates a new HostContext wrapping the given context.
func NewHostContext(ctx context.Context, funcName string, callID uint64) HostContext {
	return &hostContext{
		Context:  ctx,
		funcName: funcName,
		callID:   callID,
	}
}

func (c *hostContext) FunctionName() string {
	return c.funcName
}

func (c *hostContext) CallID() uint64 {
	return c.callID
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext, it is returned directly.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName, 0)
}
