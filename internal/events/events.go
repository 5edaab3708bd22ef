package events

import "context"

// Event types
const (
	EventAuctionCreated   = "auction_created"
	EventBidPlaced        = "bid_placed"
	EventBidWithdrawn     = "bid_withdrawn"
	EventAuctionResulted  = "auction_resulted"
	EventAuctionCancelled = "auction_cancelled"
	EventEscrowPaid       = "escrow_paid"
	EventVoucherRedeemed  = "voucher_redeemed"
	EventNativeDeposit    = "native_deposit"

	// Worker announcements
	EventAuctionEnded   = "auction_ended"
	EventEscrowUnlocked = "escrow_unlocked"
)

// StreamAuction carries all auction lifecycle events.
const StreamAuction = "events:auction"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
