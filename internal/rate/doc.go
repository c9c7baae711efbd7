// Package rate provides the Redis-backed fixed-window limiter guarding the
// password phase of login.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - crl:u:  login per identifier (case-folded)
//   - crl:ip: login per IP
//
// # What this package must NOT do
//
//   - Implement registration policies (those live in internal/limiters).
//   - Be imported outside the chainAuth module.
package rate
