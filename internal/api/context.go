package api

import (
	"context"

	"github.com/lei/runci/pkg/logger"
)

// Request-scoped values set by the middleware chain. Unexported struct
// keys cannot collide with values set by other packages. The logger
// itself travels under pkg/logger's own key so the service layer can
// read it without importing this package.
type (
	requestIDKey  struct{}
	apiKeyNameKey struct{}
)

// GetRequestID returns the id assigned to this request, or "" outside
// the middleware chain
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetLogger returns the request-scoped logger, or nil when the request
// did not pass through the logging middleware
func GetLogger(ctx context.Context) *logger.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l
	}
	return nil
}

// GetAPIKeyName returns the name of the API key that authenticated the
// request, or "" when authentication is disabled
func GetAPIKeyName(ctx context.Context) string {
	name, _ := ctx.Value(apiKeyNameKey{}).(string)
	return name
}
