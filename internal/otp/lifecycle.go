// Package otp issues and verifies emailed one-time passcodes.
//
// Records are never deleted on reissue: the most recently issued unverified
// record for an email is authoritative and older ones are simply ignored.
package otp

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/chainAuth/internal"
	"github.com/MrEthical07/chainAuth/store"
	"github.com/google/uuid"
)

var (
	ErrRateLimited = errors.New("otp issue rate limited")
	ErrNotFound    = errors.New("otp not found")
	ErrInvalidCode = errors.New("otp invalid")
	ErrExhausted   = errors.New("otp attempts exhausted")
	ErrUnavailable = errors.New("otp backend unavailable")
)

// Config holds lifecycle limits.
type Config struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
	IssueWindow time.Duration
	IssueLimit  int
	// Now overrides the clock used for windows and expiry.
	Now func() time.Time
}

// Outcome is the result of a Verify call that reached a record.
type Outcome struct {
	// Remaining is the number of attempts left after an invalid code.
	Remaining int
}

// Lifecycle issues and verifies codes against a store.OTPs backend.
type Lifecycle struct {
	store    store.OTPs
	config   Config
	now      func() time.Time
	generate func(int) (string, error)
}

// New returns a Lifecycle.
func New(backend store.OTPs, cfg Config) *Lifecycle {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{
		store:    backend,
		config:   cfg,
		now:      now,
		generate: internal.NewOTP,
	}
}

// CheckIssue reports ErrRateLimited when email already reached the issue limit
// inside the trailing window.
func (l *Lifecycle) CheckIssue(ctx context.Context, email string) error {
	n, err := l.store.CountOTPsSince(ctx, email, l.now().Add(-l.config.IssueWindow))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n >= int64(l.config.IssueLimit) {
		return ErrRateLimited
	}
	return nil
}

// Issue persists a new unverified record for email and returns the plaintext
// code for delivery.
func (l *Lifecycle) Issue(ctx context.Context, email string) (string, error) {
	if err := l.CheckIssue(ctx, email); err != nil {
		return "", err
	}

	code, err := l.generate(l.config.Digits)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := l.now().UTC()
	record := &store.OTP{
		ID:        id.String(),
		Email:     email,
		CodeHash:  hashCode(code),
		CreatedAt: now,
		ExpiresAt: now.Add(l.config.TTL),
	}
	if err := l.store.CreateOTP(ctx, record); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return code, nil
}

// Verify checks code against the authoritative record for email. It returns nil
// on success, ErrInvalidCode with the remaining attempts, ErrExhausted, or
// ErrNotFound.
func (l *Lifecycle) Verify(ctx context.Context, email, code string) (Outcome, error) {
	record, err := l.store.FindLatestUnverifiedOTP(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !record.ExpiresAt.IsZero() && l.now().After(record.ExpiresAt) {
		return Outcome{}, ErrNotFound
	}
	if record.Attempts >= l.config.MaxAttempts {
		return Outcome{}, ErrExhausted
	}

	if !codeMatches(record.CodeHash, code) {
		attempts, err := l.store.IncrementOTPAttempts(ctx, record.ID, l.config.MaxAttempts)
		if err != nil {
			if errors.Is(err, store.ErrStaleTransition) {
				// Lost a race with another verify of the same record.
				return Outcome{}, ErrExhausted
			}
			return Outcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if attempts >= l.config.MaxAttempts {
			return Outcome{}, ErrExhausted
		}
		return Outcome{Remaining: l.config.MaxAttempts - attempts}, ErrInvalidCode
	}

	if err := l.store.MarkOTPVerified(ctx, record.ID, l.config.MaxAttempts); err != nil {
		if errors.Is(err, store.ErrStaleTransition) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Outcome{}, nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func codeMatches(storedHash, code string) bool {
	want, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}
	got := sha256.Sum256([]byte(code))
	return subtle.ConstantTimeCompare(want, got[:]) == 1
}
