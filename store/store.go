// Package store defines the persistence contract for user credentials,
// registration progress and one-time passcode history.
//
// Implementations must enforce uniqueness of username, email and wallet address
// at the storage layer and apply guarded state transitions atomically; the
// engine relies on both to stay correct under concurrent requests.
package store

import (
	"context"
	"errors"
	"time"
)

// Registration steps. Step 3 is never persisted.
const (
	StepBasicInfo     = 1
	StepEmailVerified = 2
	StepComplete      = 4
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate matches every *DuplicateError.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleTransition is returned when a guarded update matched no row.
	ErrStaleTransition = errors.New("stale state transition")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("store unavailable")
)

// DuplicateError names the unique field a write collided on.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return "duplicate " + e.Field
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Unique field names reported by DuplicateError.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldWallet   = "wallet_address"
)

// User is a credential record and its registration progress.
type User struct {
	ID                    string
	Username              string
	Email                 string
	PasswordHash          string
	WalletAddress         string
	WalletType            string
	RegistrationSignature string
	RegistrationStep      int
	RegistrationComplete  bool
	IsEmailVerified       bool
	IsWalletVerified      bool
	LastLogin             time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// WalletBinding is the terminal registration update.
type WalletBinding struct {
	Address   string
	Type      string
	Signature string
}

// OTP is one issued passcode. CodeHash is the hex SHA-256 of the code.
type OTP struct {
	ID        string
	Email     string
	CodeHash  string
	Verified  bool
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Users persists credential records.
type Users interface {
	CreateUser(ctx context.Context, user *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// FindUserByUsernameOrEmail matches username exactly or email exactly.
	FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)
	// FindUserByWallet looks up a normalized address bound to any user other than excludingUserID.
	FindUserByWallet(ctx context.Context, address, excludingUserID string) (*User, error)
	SaveUser(ctx context.Context, user *User) error

	// MarkEmailVerified moves a step 1 user to step 2.
	MarkEmailVerified(ctx context.Context, id string) error
	// BindWallet moves a step 2 user to step 4.
	BindWallet(ctx context.Context, id string, binding WalletBinding) error
	RecordLogin(ctx context.Context, id string, at time.Time) error

	// DeleteIncompleteBefore removes incomplete registrations created before
	// cutoff and returns their emails.
	DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteIncompleteByEmail(ctx context.Context, email string) (bool, error)
	CountIncomplete(ctx context.Context) (int64, error)
}

// OTPs persists passcode history.
type OTPs interface {
	CreateOTP(ctx context.Context, otp *OTP) error
	// FindLatestUnverifiedOTP returns the most recently issued unverified record.
	FindLatestUnverifiedOTP(ctx context.Context, email string) (*OTP, error)
	// IncrementOTPAttempts adds one attempt if the record is unverified and below
	// maxAttempts, returning the new count. ErrStaleTransition otherwise.
	IncrementOTPAttempts(ctx context.Context, id string, maxAttempts int) (int, error)
	// MarkOTPVerified flips verified once for an unverified record below maxAttempts.
	MarkOTPVerified(ctx context.Context, id string, maxAttempts int) error
	// SaveOTP upserts every field of otp.
	SaveOTP(ctx context.Context, otp *OTP) error
	CountOTPsSince(ctx context.Context, email string, since time.Time) (int64, error)
	DeleteOTPsByEmail(ctx context.Context, emails ...string) error
}

// Store bundles both contracts.
type Store interface {
	Users
	OTPs
}
