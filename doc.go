// Package chainAuth provides a two-factor authentication engine that pairs
// password credentials with proof of cryptocurrency wallet ownership.
//
// Registration runs as a three-step state machine (basic info, email passcode,
// wallet binding). Login runs in two phases: a password check that returns a
// short-lived temporary token, then a wallet signature check that exchanges the
// temporary token for a session token.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// chainAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and value types (RegisterResult, SessionInfo, etc.).
// Passcode lifecycle, rate limiting, pending-login bookkeeping and audit
// dispatch live under internal/ and are never exported. Persistence is behind
// the store package; wallet signature schemes are behind the wallet package.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Read configuration from the environment inside flows.
//   - Import the httpapi or middleware packages (no import cycles).
//
// # Error contract
//
// Every operation returns errors that match one of the package sentinels under
// errors.Is. [KindOf] classifies them for transports and [StepOf] exposes the
// user's current registration step where one applies.
package chainAuth
