// Package requestctx carries per-connection identifiers through contexts so
// that log lines deep in the dispatch path can name their origin.
package requestctx

import "context"

type connectionIDContextKey struct{}

type subjectContextKey struct{}

// WithConnection stores the connection id and authenticated subject in context.
func WithConnection(ctx context.Context, connectionID, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, connectionIDContextKey{}, connectionID)
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// ConnectionIDFromContext returns the connection id stored in context.
func ConnectionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(connectionIDContextKey{}).(string)
	return value
}

// SubjectFromContext returns the authenticated subject stored in context.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(subjectContextKey{}).(string)
	return value
}
