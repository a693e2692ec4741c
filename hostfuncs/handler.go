package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// HostFunc is a typed host operation.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler is a host operation on the wire: a JSON request payload in, a
// JSON response payload out. A non-nil error means the host failed, not the
// request; request problems are reported as an ErrorResponse payload.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler.
// An empty payload decodes as the zero request.
//
// Usage:
//
//	appendHandler := hostfuncs.NewJSONHandler(func(ctx context.Context, req hostfuncs.AppendRequest) hostfuncs.AppendResponse {
//	    buf.Append(req.Text)
//	    return hostfuncs.AppendResponse{}
//	})
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err)).ToJSON(), nil
			}
		}

		resp := fn(ctx, req)

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return respBytes, nil
	}
}
