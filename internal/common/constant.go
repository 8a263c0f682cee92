// Package common contains constants and sentinel errors shared by the
// transport, storage and service layers of the joboost client.
package common

// HTTP header names used when talking to the Gateway.
const (
	AuthorizationHeader = "Authorization"
	SessionIDHeader     = "X-Session-ID"
	RequestIDHeader     = "X-Request-ID"
)

// Durable store keys. Token and user are always written and cleared together.
const (
	TokenKey = "session_token"
	UserKey  = "session_user"
)
