package models

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address identifies an account. It is the base58 encoding of the account's
// ed25519 public key (32 bytes). The zero value means "no account".
type Address string

// NativeToken is the pay-token sentinel for the native currency.
const NativeToken Address = ""

// AddressFromKey derives the account address for a public key.
func AddressFromKey(pub ed25519.PublicKey) Address {
	return Address(base58.Encode(pub))
}

// ParseAddress decodes an address back into its public key.
func ParseAddress(addr Address) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(string(addr))
	if err != nil {
		return nil, fmt.Errorf("invalid address encoding: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid address size: %d bytes", len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// IsNative reports whether a pay token refers to the native currency.
func (a Address) IsNative() bool {
	return a == NativeToken
}
