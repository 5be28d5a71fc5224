// Package requestid carries the per-request identifier through contexts so
// that log lines emitted deep in the fetch path can be correlated with the
// HTTP response envelope.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New returns a fresh 8-hex-char request identifier.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithContext returns a context carrying the request identifier.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request identifier, or "-" when absent.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return "-"
}
