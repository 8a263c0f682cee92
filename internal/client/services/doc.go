// Package services holds the client-side state owners of joboost.
//
// Three components keep local state consistent with the Gateway:
//
//   - SessionManager owns the session (token, cached user, state) and gates
//     which views may render.
//   - PaymentMonitor polls the Gateway for the outcome of a checkout.
//   - ApplicationSynchronizer owns the application collection and applies
//     status changes and deletes optimistically.
//
// ProfileService completes onboarding and runs document generation on top
// of the session.
//
// Each component guards its state with its own mutex and never holds it
// across a Gateway call. Results are reconciled after the call returns, so
// a late response can never overwrite a newer local change.
package services
