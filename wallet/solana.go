package wallet

import (
	"crypto/ed25519"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Solana verifies detached Ed25519 signatures from base58 encoded keys.
type Solana struct{}

func (Solana) Type() Type { return TypeSolana }

// ValidateAddress requires a 32-byte base58 public key that decodes to a point on
// the Ed25519 curve.
func (Solana) ValidateAddress(address string) bool {
	_, ok := decodePublicKey(address)
	return ok
}

// NormalizeAddress keeps base58 input as received; the encoding is case sensitive.
func (Solana) NormalizeAddress(address string) string {
	return address
}

func (Solana) SameAddress(a, b string) bool {
	return a != "" && a == b
}

func (Solana) VerifySignature(message, signature, address string) bool {
	pub, ok := decodePublicKey(address)
	if !ok {
		return false
	}
	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, []byte(message), sig)
}

func decodePublicKey(address string) (ed25519.PublicKey, bool) {
	if address == "" {
		return nil, false
	}
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, false
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return nil, false
	}
	return ed25519.PublicKey(raw), true
}
