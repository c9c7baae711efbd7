package wallet

import (
	"errors"
	"strings"
)

// Type names a wallet family as it travels over the wire and in storage.
type Type string

const (
	TypeEthereum Type = "ethereum"
	TypeSolana   Type = "solana"

	// DefaultType is used when a caller does not declare a wallet type.
	DefaultType = TypeEthereum
)

// ErrUnsupportedType is returned by Lookup for wallet types without a family.
var ErrUnsupportedType = errors.New("unsupported wallet type")

// Family is the capability every wallet family implements.
type Family interface {
	Type() Type
	// ValidateAddress reports whether address is well formed for the family.
	ValidateAddress(address string) bool
	// NormalizeAddress returns the canonical storage form of a valid address.
	NormalizeAddress(address string) string
	// SameAddress compares two addresses with the family's case rules.
	SameAddress(a, b string) bool
	// VerifySignature reports whether signature over message was produced by the
	// key behind address.
	VerifySignature(message, signature, address string) bool
}

var families = map[Type]Family{
	TypeEthereum: Ethereum{},
	TypeSolana:   Solana{},
}

// ParseType normalizes a wire value. Empty input maps to DefaultType.
func ParseType(raw string) Type {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultType
	}
	return Type(raw)
}

// Lookup returns the family registered for t.
func Lookup(t Type) (Family, error) {
	if t == "" {
		t = DefaultType
	}
	f, ok := families[t]
	if !ok {
		return nil, ErrUnsupportedType
	}
	return f, nil
}

// Verify checks a signature with the family named by t. Unknown families and
// malformed input yield false.
func Verify(message, signature, address string, t Type) bool {
	f, err := Lookup(t)
	if err != nil {
		return false
	}
	return f.VerifySignature(message, signature, address)
}

// Types lists the supported wallet types.
func Types() []Type {
	return []Type{TypeEthereum, TypeSolana}
}

// DisplayName returns the network name shown to users.
func DisplayName(t Type) string {
	switch t {
	case TypeEthereum:
		return "Ethereum"
	case TypeSolana:
		return "Solana"
	default:
		return "Unknown"
	}
}

// ProviderName returns the browser wallet usually used with t.
func ProviderName(t Type) string {
	switch t {
	case TypeEthereum:
		return "MetaMask"
	case TypeSolana:
		return "Phantom"
	default:
		return "Unknown"
	}
}
