package models

import (
	"time"

	"github.com/google/uuid"
)

// Auction statuses (stored). The created/active/ended phase within
// StatusCreated is derived from the clock, see Phase.
const (
	AuctionStatusCreated   = "created"
	AuctionStatusResulted  = "resulted"
	AuctionStatusPaid      = "paid"
	AuctionStatusCancelled = "cancelled"
)

// Valid state transitions: from -> []to
var ValidAuctionTransitions = map[string][]string{
	AuctionStatusCreated:   {AuctionStatusResulted, AuctionStatusCancelled},
	AuctionStatusResulted:  {AuctionStatusPaid},
	AuctionStatusPaid:      {},
	AuctionStatusCancelled: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidAuctionTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Auction phases, derived from [StartTime, EndTime) against the clock.
const (
	PhaseUpcoming = "upcoming"
	PhaseActive   = "active"
	PhaseEnded    = "ended"
)

type Auction struct {
	ID       uuid.UUID `json:"id"`
	Contract Address   `json:"contract"`
	TokenID  uint64    `json:"token_id"`
	Quantity int64     `json:"quantity"`
	Seller   Address   `json:"seller"`

	// PayToken is fixed at creation: NativeToken or a registered fungible unit.
	PayToken     Address   `json:"pay_token"`
	ReservePrice int64     `json:"reserve_price"` // nano units
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`

	HighestBid    int64   `json:"highest_bid"`
	HighestBidder Address `json:"highest_bidder,omitempty"`
	BidCount      int64   `json:"bid_count"` // also the escrow sequence source

	Status string `json:"status"`

	// Settlement split, frozen at result time. ProceedsPaid and FeePaid
	// record which payout legs already landed, so a payout retried after a
	// failed transfer never releases the same leg twice.
	Winner         Address `json:"winner,omitempty"`
	WinningBid     int64   `json:"winning_bid,omitempty"`
	PlatformFee    int64   `json:"platform_fee,omitempty"`
	SellerProceeds int64   `json:"seller_proceeds,omitempty"`
	ProceedsPaid   bool    `json:"proceeds_paid,omitempty"`
	FeePaid        bool    `json:"fee_paid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Auction) Asset() AssetRef {
	return AssetRef{Contract: a.Contract, TokenID: a.TokenID, Quantity: a.Quantity}
}

func (a *Auction) AssetKey() string {
	return a.Asset().Key()
}

// Phase derives the timing phase; bids are accepted only while PhaseActive.
func (a *Auction) Phase(now time.Time) string {
	if now.Before(a.StartTime) {
		return PhaseUpcoming
	}
	if now.Before(a.EndTime) {
		return PhaseActive
	}
	return PhaseEnded
}

// Live reports whether the auction can still accept lifecycle operations
// (bid, result, cancel); resulted, paid and cancelled auctions are settled.
func (a *Auction) Live() bool {
	return a.Status == AuctionStatusCreated
}
