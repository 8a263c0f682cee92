// Package client talks to the joboost Gateway.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering the
//     auth, application, stats and payment endpoints.
//  2. An HTTP/JSON implementation (see HTTPClient) that attaches the bearer
//     token read from a TokenSource on every call, throttles outgoing
//     requests, and maps HTTP status codes to sentinel errors.
//
// # Error Handling
//
// Failed responses are returned as *APIError, which unwraps to
// ErrUnauthorized, ErrUnavailable, common.ErrValidation or
// common.ErrNotFound. Transport failures unwrap to ErrUnavailable.
//
// # Session invalidation
//
// Any 401 response to a request that carried a bearer token triggers the
// handler installed with OnUnauthorized, whichever component issued it.
// The session manager installs its ForceLogout there so that an expired
// token signs the user out everywhere.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
