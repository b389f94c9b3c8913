package types

// ContextKey is the key type for values carried on a request context.
type ContextKey string

// Context keys attached by the server middleware and read by telemetry.
const (
	ContextKeyRequestID     ContextKey = "request_id"
	ContextKeyRequestSource ContextKey = "request_source"
	ContextKeyClientID      ContextKey = "client_id"
)
