// Package voucher implements the creator-signature scheme for lazy minting.
// Verification is pure: it recomputes the canonical digest and checks the
// ed25519 signature against the declared creator's key. Redemption
// bookkeeping lives with the caller.
package voucher

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/models"
)

// DigestPrefix versions the canonical layout. Changing the field order or
// encoding requires bumping the version.
const DigestPrefix = "nft-voucher-v1/"

// Digest computes the canonical digest a creator signs.
//
// Layout (field order matters, identical on both sides):
//
//	"nft-voucher-v1/" ++ quantity(8 LE) ++ min_price(8 LE) ++
//	uri_len(4 LE) ++ uri ++ creator_key(32) ++
//	token_len(4 LE) ++ pay_token ++ token_id(8 LE) ++
//	contract_len(4 LE) ++ contract
func Digest(v models.Voucher) ([32]byte, error) {
	creatorKey, err := models.ParseAddress(v.Creator)
	if err != nil {
		return [32]byte{}, fmt.Errorf("creator address: %w", err)
	}

	msg := []byte(DigestPrefix)

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v.Quantity))
	msg = append(msg, buf...)

	binary.LittleEndian.PutUint64(buf, uint64(v.MinPrice))
	msg = append(msg, buf...)

	msg = appendLenPrefixed(msg, []byte(v.URI))
	msg = append(msg, creatorKey...)
	msg = appendLenPrefixed(msg, []byte(v.PayToken))

	binary.LittleEndian.PutUint64(buf, v.TokenID)
	msg = append(msg, buf...)

	msg = appendLenPrefixed(msg, []byte(v.Contract))

	return sha256.Sum256(msg), nil
}

// DigestHex is the hex form used as the redemption dedup key.
func DigestHex(v models.Voucher) (string, error) {
	d, err := Digest(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d[:]), nil
}

// Verify checks voucher shape and signature, returning the creator address
// the asset proceeds belong to.
func Verify(v models.Voucher) (models.Address, error) {
	// 1. Shape: required fields must be present before any crypto.
	if v.Contract == "" || v.Creator == "" || v.URI == "" {
		return "", engine.ErrMalformedVoucher
	}
	if v.Quantity < 1 || v.MinPrice < 0 {
		return "", engine.ErrMalformedVoucher
	}

	// 2. Decode the signature.
	sig, err := hex.DecodeString(v.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return "", engine.ErrMalformedVoucher
	}

	// 3. Recompute the digest the creator signed.
	digest, err := Digest(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrMalformedVoucher, err)
	}

	// 4. Verify against the declared creator's key.
	creatorKey, err := models.ParseAddress(v.Creator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrMalformedVoucher, err)
	}
	if !ed25519.Verify(creatorKey, digest[:], sig) {
		return "", engine.ErrInvalidSignature
	}

	return v.Creator, nil
}

// Sign fills in the voucher's signature for the given creator key. Used by
// tests and tooling; real creators sign client-side.
func Sign(v models.Voucher, priv ed25519.PrivateKey) (models.Voucher, error) {
	v.Creator = models.AddressFromKey(priv.Public().(ed25519.PublicKey))
	digest, err := Digest(v)
	if err != nil {
		return v, err
	}
	v.Signature = hex.EncodeToString(ed25519.Sign(priv, digest[:]))
	return v, nil
}

func appendLenPrefixed(msg, field []byte) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(field)))
	msg = append(msg, buf...)
	return append(msg, field...)
}
