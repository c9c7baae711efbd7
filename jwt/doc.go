// Package jwt issues and verifies the two token kinds used by chainAuth: full
// session tokens and short-lived temporary tokens that only unlock the wallet
// signature step of login.
//
// Both kinds share one signing key and one claim layout; a temporary token is
// marked with temp=true and always carries a jti so the engine can make it
// single use.
package jwt
