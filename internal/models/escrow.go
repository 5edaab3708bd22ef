package models

import (
	"time"

	"github.com/google/uuid"
)

// EscrowEntry is the locked amount the engine holds for one bidder on one
// auction. At most one entry exists per (asset, bidder); raising a bid tops
// the same entry up. Seq is the per-auction bid sequence the entry was last
// updated at — withdrawals must quote it (the "escrow id").
type EscrowEntry struct {
	ID       uuid.UUID `json:"id"`
	AssetKey string    `json:"asset_key"`
	Bidder   Address   `json:"bidder"`
	Amount   int64     `json:"amount"` // nano units
	Seq      int64     `json:"seq"`
	LockedAt time.Time `json:"locked_at"`
}
