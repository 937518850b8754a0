package common

// AccessTokenHeaderName is the gRPC metadata key carrying the bearer
// access token on inbound requests.
const AccessTokenHeaderName = "authorization"

// BearerPrefix precedes the token in the authorization header value.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed back in response headers so callers can
// correlate log lines.
const RequestIDHeaderName = "x-request-id"
