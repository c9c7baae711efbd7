package chainAuth

import "errors"

// ErrorKind classifies engine errors for transports.
type ErrorKind int

const (
	// KindTransient covers datastore, cache and mail failures. It is also the
	// kind reported for errors that did not originate in the engine.
	KindTransient ErrorKind = iota
	// KindValidation is malformed or missing input.
	KindValidation
	// KindConflict is a uniqueness violation (username, email, wallet).
	KindConflict
	// KindAuth is a failed credential, token or signature check.
	KindAuth
	// KindState is a request that does not fit the user's registration step.
	KindState
	// KindRateLimit is an exceeded attempt or issue budget.
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindState:
		return "state"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "transient"
	}
}

// Error is the error type returned by every Engine operation.
//
// Package-level sentinels carry a Kind and a user-visible Message. Operations
// that need to report context (current registration step, remaining OTP
// attempts) return a copy that still matches the sentinel under errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
	// Step is the user's current registration step when relevant, zero otherwise.
	Step int
	// Remaining is the number of OTP attempts left after an invalid code.
	Remaining int
	// UserID identifies the account for errors that let the caller resume
	// registration.
	UserID string

	sentinel *Error
	cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Unwrap exposes the originating sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.sentinel != nil {
		out = append(out, e.sentinel)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

func (e *Error) derive() *Error {
	root := e
	if e.sentinel != nil {
		root = e.sentinel
	}
	out := *e
	out.sentinel = root
	return &out
}

func (e *Error) withStep(step int) *Error {
	out := e.derive()
	out.Step = step
	return out
}

func (e *Error) withUser(userID string) *Error {
	out := e.derive()
	out.UserID = userID
	return out
}

func (e *Error) withMessage(msg string) *Error {
	out := e.derive()
	out.Message = msg
	return out
}

func (e *Error) withCause(err error) *Error {
	out := e.derive()
	out.cause = err
	return out
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of err, or KindTransient when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// StepOf returns the registration step attached to err, if any.
func StepOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Step > 0 {
		return e.Step, true
	}
	return 0, false
}

// MessageOf returns the user-visible message for err. Errors that did not
// originate in the engine get a generic message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}

// Validation.
var (
	ErrMissingFields       = newError(KindValidation, "Please provide all required fields")
	ErrPasswordMismatch    = newError(KindValidation, "Passwords do not match")
	ErrUsernameLength      = newError(KindValidation, "Username must be between 3 and 20 characters")
	ErrUsernameCharacters  = newError(KindValidation, "Username can only contain letters and numbers")
	ErrInvalidEmail        = newError(KindValidation, "Please provide a valid email")
	ErrPasswordTooShort    = newError(KindValidation, "Password must be at least 8 characters")
	ErrPasswordComplexity  = newError(KindValidation, "Password must contain uppercase, lowercase, number, and special character")
	ErrPasswordTooLong     = newError(KindValidation, "Password must be at most 72 bytes")
	ErrMissingOTPFields    = newError(KindValidation, "Please provide userId and OTP")
	ErrMissingUserID       = newError(KindValidation, "Please provide userId")
	ErrMissingCredentials  = newError(KindValidation, "Please provide username and password")
	ErrInvalidWalletAddr   = newError(KindValidation, "Invalid wallet address")
	ErrUnsupportedWallet   = newError(KindValidation, "Unsupported wallet type")
	ErrTokenType           = newError(KindValidation, "Invalid token type")
	ErrUnsupportedPurpose  = newError(KindValidation, "Unsupported challenge purpose")
	ErrMissingEmail        = newError(KindValidation, "Please provide an email")
	ErrInvalidCleanupAge   = newError(KindValidation, "Cleanup age must be positive")
	ErrMissingSessionToken = newError(KindAuth, "Not authorized. Please login.")
)

// Conflict.
var (
	ErrUsernameTaken = newError(KindConflict, "Username already taken")
	ErrEmailTaken    = newError(KindConflict, "Email already registered")
	ErrWalletTaken   = newError(KindConflict, "This wallet is already registered to another account")
)

// Auth.
var (
	ErrInvalidCredentials = newError(KindAuth, "Invalid credentials")
	ErrInvalidSignature   = newError(KindAuth, "Invalid wallet signature. Please try again.")
	ErrWalletMismatch     = newError(KindAuth, "This wallet is not registered to your account")
	ErrTokenExpired       = newError(KindAuth, "Token expired. Please login again.")
	ErrTokenInvalid       = newError(KindAuth, "Not authorized. Invalid token.")
	ErrTempTokenRejected  = newError(KindAuth, "Temporary token. Please complete wallet verification.")
	ErrInvalidOTP         = newError(KindAuth, "Invalid OTP")
)

// State.
var (
	ErrUserNotFound           = newError(KindState, "User not found")
	ErrInvalidStep            = newError(KindState, "Invalid registration step")
	ErrEmailNotVerified       = newError(KindState, "Please verify your email first")
	ErrRegistrationIncomplete = newError(KindState, "Please complete registration first")
	ErrOTPNotFound            = newError(KindState, "No valid OTP found. Please request a new one.")
	ErrNoIncompleteFound      = newError(KindState, "No incomplete registration found for this email")
)

// Rate limit.
var (
	ErrOTPExhausted          = newError(KindRateLimit, "Too many attempts. Please request a new OTP.")
	ErrOTPRateLimited        = newError(KindRateLimit, "Too many OTP requests. Please try again in 15 minutes.")
	ErrLoginRateLimited      = newError(KindRateLimit, "Too many login attempts. Please try again later.")
	ErrRegistrationLimited   = newError(KindRateLimit, "Too many registrations from this address. Please try again later.")
	ErrLoginAttemptsExceeded = newError(KindRateLimit, "Too many wallet verification attempts. Please login again.")
)

// Transient.
var (
	ErrInternal       = newError(KindTransient, "Server error. Please try again.")
	ErrUnavailable    = newError(KindTransient, "Service temporarily unavailable. Please try again.")
	ErrOTPDelivery    = newError(KindTransient, "Failed to send verification email")
	ErrEngineNotReady = newError(KindTransient, "engine not initialized")
)
