// Package wallet verifies wallet ownership proofs for the supported wallet families.
//
// Two unrelated signature schemes sit behind one capability interface, [Family]:
//
//   - [Ethereum]: secp256k1 ECDSA over the EIP-191 personal-message hash, with the
//     signer address recovered from the signature.
//   - [Solana]: detached Ed25519 signatures over the raw message bytes, with the
//     public key carried in base58 as the address.
//
// Callers select a family once with [Lookup] and never branch on the wallet type
// again. Every verification entry point returns false on malformed input and never
// panics.
package wallet
