package types

import (
	"context"
)

// Context Keys
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	languageKey  contextKey = "language"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLanguage stores the negotiated display language (a BCP 47 tag string)
// in the context.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey, lang)
}

// GetLanguage retrieves the negotiated display language from the context.
// Returns an empty string if negotiation has not run.
func GetLanguage(ctx context.Context) string {
	lang, _ := ctx.Value(languageKey).(string)
	return lang
}
