package constants

// contextKey is an unexported type for context keys in this package.
// Using a custom type prevents collisions with keys from other packages
// that might use the same underlying string value.
type contextKey string

const (
	HeaderXRequestId = "x-request-id"
	// HeaderXSessionID identifies the shopper whose cart a request touches.
	HeaderXSessionID = "x-session-id"

	// ContextKeyRequestID is the context key for the request ID.
	ContextKeyRequestID contextKey = HeaderXRequestId
	// ContextKeySessionID is the context key for the cart session ID.
	ContextKeySessionID contextKey = HeaderXSessionID
)
