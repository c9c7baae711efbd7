package wallet

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const ethSignatureLength = 65

// Ethereum verifies personal_sign signatures from secp256k1 wallets.
type Ethereum struct{}

func (Ethereum) Type() Type { return TypeEthereum }

// ValidateAddress accepts 40 hex digits with an optional 0x prefix. Mixed-case
// input must carry a valid EIP-55 checksum.
func (Ethereum) ValidateAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(address).Hex()[2:] == body
}

func (Ethereum) NormalizeAddress(address string) string {
	return strings.ToLower(common.HexToAddress(address).Hex())
}

func (e Ethereum) SameAddress(a, b string) bool {
	if !e.ValidateAddress(a) || !e.ValidateAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

func (e Ethereum) VerifySignature(message, signature, address string) bool {
	if !e.ValidateAddress(address) {
		return false
	}
	recovered, ok := recoverAddress(message, signature)
	if !ok {
		return false
	}
	return recovered == common.HexToAddress(address)
}

func recoverAddress(message, signature string) (common.Address, bool) {
	raw := strings.TrimPrefix(strings.TrimPrefix(signature, "0x"), "0X")
	sig, err := hex.DecodeString(raw)
	if err != nil || len(sig) != ethSignatureLength {
		return common.Address{}, false
	}

	// Wallets emit v as 27/28; recovery wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, false
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil || pub == nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}
