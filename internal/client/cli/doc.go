// Package cli provides the interactive joboost command-line client.
//
// It wires configuration, the durable session store, the Gateway client and
// the session, application and payment components behind a REPL. Typical
// flow: restore the stored session, load applications, then execute user
// commands until exit.
//
// Key features:
//   - Login / Register / delegated login via callback URL / Logout
//   - List and board views of applications, optimistic status moves
//   - Add / Edit / Show / Delete applications, local reordering
//   - Checkout and payment confirmation
//   - Onboarding profile and AI generated CVs and cover letters
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, runREPL and the command methods for details.
package cli
