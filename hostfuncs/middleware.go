package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that catches panics and converts
// them to an ErrorResponse payload instead of crashing the drain loop.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = NewPanicError(r).ToJSON()
					err = nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware returns a middleware that records every invocation at
// debug level, and failures at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			attrs := []any{slog.Int("request_bytes", len(payload))}
			if hc, ok := ctx.(HostContext); ok {
				attrs = append(attrs, slog.String("op", hc.FunctionName()), slog.Uint64("call", hc.CallID()))
			}

			start := time.Now()
			resp, err := next(ctx, payload)
			attrs = append(attrs, slog.Duration("elapsed", time.Since(start)))

			switch {
			case err != nil:
				logger.WarnContext(ctx, "host op failed", append(attrs, slog.Any("error", err))...)
			default:
				if er, isErr := ParseErrorResponse(resp); isErr {
					logger.WarnContext(ctx, "host op rejected", append(attrs, slog.String("error", er.Error), slog.String("message", er.Message))...)
				} else {
					logger.DebugContext(ctx, "host op completed", append(attrs, slog.Int("response_bytes", len(resp)))...)
				}
			}
			return resp, err
		}
	}
}
