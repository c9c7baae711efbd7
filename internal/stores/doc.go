// Package stores provides Redis-backed, short-lived record stores for the
// wallet signature step of login.
//
// # Design
//
// Each record is versioned, binary-encoded and stored with a TTL matching the
// temporary token that references it. RecordFailure uses WATCH/MULTI optimistic
// transactions with retry on contention. Records are single use: Delete reports
// whether the caller won the removal, which lets the engine detect replays.
//
// # What this package must NOT do
//
//   - Import chainAuth or any sibling internal package.
//   - Make authentication decisions; the engine maps store errors.
package stores
