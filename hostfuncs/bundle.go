package hostfuncs

import (
	"context"
)

// Names of the built-in buffer operations.
const (
	OpAppend = "append"
	OpRead   = "read"
)

// HostFuncBundle is a pre-configured set of related host functions.
type HostFuncBundle interface {
	// Handlers returns a map of handler names to ByteHandler functions.
	Handlers() map[string]ByteHandler
}

type staticBundle struct {
	handlers map[string]ByteHandler
}

func (b *staticBundle) Handlers() map[string]ByteHandler {
	return b.handlers
}

// AppendRequest is the payload of the append operation.
type AppendRequest struct {
	Text string `json:"text"`
}

// AppendResponse is the (empty) answer to append.
type AppendResponse struct{}

// ReadRequest is the (empty) payload of the read operation.
type ReadRequest struct{}

// ReadResponse carries a snapshot of the buffer.
type ReadResponse struct {
	Text string `json:"text"`
}

// BufferBundle returns the two operations scripts may use on buf:
// append and read.
func BufferBundle(buf *HostBuffer) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			OpAppend: NewJSONHandler(func(_ context.Context, req AppendRequest) AppendResponse {
				buf.Append(req.Text)
				return AppendResponse{}
			}),
			OpRead: NewJSONHandler(func(_ context.Context, _ ReadRequest) ReadResponse {
				return ReadResponse{Text: buf.String()}
			}),
		},
	}
}

// BufferSchemas maps each buffer operation to its request and response models,
// for schema registration.
func BufferSchemas() map[string][2]any {
	return map[string][2]any{
		OpAppend: {AppendRequest{}, AppendResponse{}},
		OpRead:   {ReadRequest{}, ReadResponse{}},
	}
}
