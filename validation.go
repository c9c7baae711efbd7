package chainAuth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 20
	passwordMinLength = 8
	passwordMaxBytes  = 72
	passwordSymbols   = "@$!%*?&"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	emailPattern    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// normalizeRegistration trims and lowercases the email. Username and
// passwords are taken verbatim, so surrounding spaces fail the username rules.
func normalizeRegistration(req RegisterRequest) RegisterRequest {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	return req
}

// validateRegistration applies the step-one rules in order and returns the
// first violation.
func validateRegistration(req RegisterRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if n := utf8.RuneCountInString(req.Username); n < usernameMinLength || n > usernameMaxLength {
		return ErrUsernameLength
	}
	if !usernamePattern.MatchString(req.Username) {
		return ErrUsernameCharacters
	}
	if !emailPattern.MatchString(req.Email) {
		return ErrInvalidEmail
	}
	if len(req.Password) < passwordMinLength {
		return ErrPasswordTooShort
	}
	if !passwordComplex(req.Password) {
		return ErrPasswordComplexity
	}
	if len(req.Password) > passwordMaxBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func passwordComplex(pw string) bool {
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}
