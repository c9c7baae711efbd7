// Package middleware exposes the net/http guard that protects routes with a
// chainAuth session token.
//
// The guard reads the Authorization bearer header, calls
// Engine.ValidateSession and injects the session into the request context.
// Temporary login tokens are rejected.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself. [StatusCode] and [NewErrorBody] are
// shared with the httpapi package so both answer errors the same way.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the user store.
package middleware
