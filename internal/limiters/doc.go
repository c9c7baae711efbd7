// Package limiters provides domain-specific rate limiters built on top of the
// same fixed-window Redis counters as internal/rate.
//
// # Limiters
//
//   - [RegistrationLimiter]: per-IP throttle for registration step one.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import chainAuth or any sibling internal package.
//   - Make policy decisions beyond counting; the engine decides consequences.
package limiters
