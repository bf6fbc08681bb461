package logging

import (
	"context"
	"sync/atomic"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// CredentialIndexKey is the context key for the rotation slot that served
	// the request.
	CredentialIndexKey contextKey = "credential_index"

	credentialSlotKey contextKey = "credential_slot"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// credentialSlot carries the served index back up to outer middleware,
// whose context does not see values added further down the chain.
// -1 means unset.
type credentialSlot struct {
	index atomic.Int64
}

// WithCredentialSlot prepares ctx so that a later WithCredentialIndex on a
// derived context is also visible through ctx itself.
func WithCredentialSlot(ctx context.Context) context.Context {
	slot := &credentialSlot{}
	slot.index.Store(-1)
	return context.WithValue(ctx, credentialSlotKey, slot)
}

// WithCredentialIndex records the served rotation slot in the context. The
// credential itself is never stored.
func WithCredentialIndex(ctx context.Context, index int) context.Context {
	if slot, ok := ctx.Value(credentialSlotKey).(*credentialSlot); ok {
		slot.index.Store(int64(index))
	}
	return context.WithValue(ctx, CredentialIndexKey, index)
}

// GetCredentialIndex retrieves the served rotation slot from the context.
func GetCredentialIndex(ctx context.Context) (int, bool) {
	if idx, ok := ctx.Value(CredentialIndexKey).(int); ok {
		return idx, true
	}
	if slot, ok := ctx.Value(credentialSlotKey).(*credentialSlot); ok {
		if idx := slot.index.Load(); idx >= 0 {
			return int(idx), true
		}
	}
	return 0, false
}
