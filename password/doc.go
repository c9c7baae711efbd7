// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Hashes use the modular crypt format produced by golang.org/x/crypto/bcrypt:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// [Bcrypt.NeedsUpgrade] reports hashes produced with a lower cost than the
// configured one so the caller can re-hash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other chainAuth package.
//   - Log plaintext passwords.
package password
