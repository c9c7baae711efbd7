package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the lowest cost accepted by NewBcrypt.
	MinCost = 10
	// DefaultCost matches the cost used by accounts created before cost upgrades.
	DefaultCost = 10
	// maxPassBytes is the bcrypt input limit; longer input is rejected rather than truncated.
	maxPassBytes = 72
)

// ErrPasswordTooLong is returned by Hash for input bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Config defines a public type used by chainAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies passwords.
type Bcrypt struct {
	config Config
}

// NewBcrypt validates cfg and returns a hasher.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.Cost < MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password cost must be within [%d, %d]", MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{config: cfg}, nil
}

// Hash returns the bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) > maxPassBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.config.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches encodedHash. A mismatch is not an
// error; a malformed hash is.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// NeedsUpgrade reports whether encodedHash was produced with a lower cost than
// the configured one.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, err
	}
	return cost < b.config.Cost, nil
}
