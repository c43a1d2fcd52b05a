package common

const (
	// AuthorizationHeader carries the access token as "Bearer <token>".
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the access token in AuthorizationHeader.
	BearerPrefix = "Bearer "

	// RequestIDHeader is echoed back on every HTTP response.
	RequestIDHeader = "X-Request-Id"
)
