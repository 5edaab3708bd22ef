package models

import (
	"time"

	"github.com/google/uuid"
)

// Voucher is a creator-signed, off-system authorization to mint and transfer
// an asset later. The signature covers the canonical digest of all other
// fields (see the voucher package for the exact layout).
type Voucher struct {
	Contract Address `json:"contract"`
	TokenID  uint64  `json:"token_id"`
	Quantity int64   `json:"quantity"`
	MinPrice int64   `json:"min_price"` // per unit, nano units
	URI      string  `json:"uri"`
	Creator  Address `json:"creator"`
	PayToken Address `json:"pay_token"`

	// Signature is the hex-encoded ed25519 signature by the creator's key.
	Signature string `json:"signature"`
}

func (v Voucher) Asset() AssetRef {
	return AssetRef{Contract: v.Contract, TokenID: v.TokenID, Quantity: v.Quantity}
}

// MinTotal is the minimum acceptable payment: quantity times unit min price.
func (v Voucher) MinTotal() int64 {
	return v.Quantity * v.MinPrice
}

// VoucherRedemption records a consumed voucher, keyed by the canonical
// full-content digest (hex). A creator may sign a fresh voucher for the same
// token id later; only an exact re-submission is rejected.
//
// The split is frozen at redemption time and the three settlement legs are
// checkpointed individually, so a redemption that failed partway can be
// retried by the same redeemer without repeating a leg.
type VoucherRedemption struct {
	ID           uuid.UUID `json:"id"`
	Digest       string    `json:"digest"`
	Creator      Address   `json:"creator"`
	Contract     Address   `json:"contract"`
	TokenID      uint64    `json:"token_id"`
	Redeemer     Address   `json:"redeemer"`
	Paid         int64     `json:"paid"`
	Proceeds     int64     `json:"proceeds"`
	Fee          int64     `json:"fee"`
	Minted       bool      `json:"minted"`
	ProceedsPaid bool      `json:"proceeds_paid"`
	FeePaid      bool      `json:"fee_paid"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

// Settled reports whether every settlement leg has landed.
func (r *VoucherRedemption) Settled() bool {
	return r.Minted && r.ProceedsPaid && r.FeePaid
}
