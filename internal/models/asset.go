package models

import "fmt"

// Asset kinds
const (
	AssetKindUnique = "unique" // single-owner, quantity is always 1
	AssetKindMulti  = "multi"  // multi-quantity balances per owner
)

// AssetRef pinpoints a transferable item: a collection contract, a token id
// within it, and a quantity (1 for unique assets). Immutable once an auction
// or voucher references it.
type AssetRef struct {
	Contract Address `json:"contract"`
	TokenID  uint64  `json:"token_id"`
	Quantity int64   `json:"quantity"`
}

// Key returns the canonical auction/escrow map key for the asset.
// Quantity is not part of the key: one live auction per (contract, token id).
func (a AssetRef) Key() string {
	return fmt.Sprintf("%s:%d", a.Contract, a.TokenID)
}

func (a AssetRef) Validate() error {
	if a.Contract == "" {
		return fmt.Errorf("asset contract is required")
	}
	if a.Quantity < 1 {
		return fmt.Errorf("asset quantity must be >= 1, got %d", a.Quantity)
	}
	return nil
}
