// Package log carries correlation ids through contexts and exposes them as
// zap fields, so every log line produced while handling one envelope or one
// live-game session can be tied together.
package log

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type correlationIDType int

const (
	sessionIDKey correlationIDType = iota
	requestIDKey
)

// WithSessionID returns a context that knows its live-game session id. The
// session id spans the whole lifetime of one synced game.
func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithRequestID returns a context tagged with the id of the envelope being
// handled. A request id tracks one inbound message across goroutines.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithNewRequestID is WithRequestID with a fresh random id, for work that has
// no inbound envelope to borrow an id from.
func WithNewRequestID(ctx context.Context) context.Context {
	return WithRequestID(ctx, uuid.New())
}

// ExtractSessionID extracts the session id from a context.
func ExtractSessionID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(sessionIDKey).(uuid.UUID)
	return id, ok
}

// ExtractRequestID extracts the request id from a context.
func ExtractRequestID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey).(uuid.UUID)
	return id, ok
}

// ZContext encodes whatever correlation ids the context carries as inline zap
// fields. Safe on a bare context: it emits nothing.
func ZContext(ctx context.Context) zap.Field {
	return zap.Inline(zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		if id, ok := ExtractSessionID(ctx); ok {
			enc.AddString("sessionId", id.String())
		}
		if id, ok := ExtractRequestID(ctx); ok {
			enc.AddString("requestId", id.String())
		}
		return nil
	}))
}
