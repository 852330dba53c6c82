package logger

import (
	"context"

	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

type contextKey int

const (
	loggerKey contextKey = iota
	scanIDKey
)

// FromContext retrieves a logger from the context, or a no-op logger.
func FromContext(ctx context.Context) interfaces.Logger {
	if l, ok := ctx.Value(loggerKey).(interfaces.Logger); ok {
		return l
	}
	return NewNoopLogger()
}

// WithContext adds a logger to the context.
func WithContext(ctx context.Context, l interfaces.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithScanID tags ctx with the id of the running scan.
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// ScanIDFromContext returns the scan id set by WithScanID.
func ScanIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scanIDKey).(string)
	return id, ok && id != ""
}
