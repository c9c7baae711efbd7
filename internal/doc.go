// Package internal contains helper utilities that are intentionally private to chainAuth.
//
// # Sub-packages
//
//   - audit: audit sinks used by the engine dispatcher
//   - limiters: Redis fixed-window limiter for registration
//   - otp: one-time passcode issue/verify lifecycle
//   - rate: Redis-backed login throttling
//   - serverconfig: viper configuration for the server binary
//   - stores: Redis pending-login store for the wallet signature step
//
// # What this package must NOT do
//
//   - Export types that appear in the public chainAuth API.
//   - Be imported by any package outside the chainAuth module.
package internal
