package dto

import "github.com/nft-auction/backend/internal/models"

type ChallengeRequest struct {
	Address string `json:"address"`
}

type LoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"` // hex ed25519 over prefix+nonce
}

type CreateAuctionRequest struct {
	Contract     string `json:"contract"`
	TokenID      uint64 `json:"token_id"`
	Quantity     int64  `json:"quantity"`
	PayToken     string `json:"pay_token"` // empty for native
	ReservePrice int64  `json:"reserve_price"`
	StartTime    int64  `json:"start_time"` // unix seconds
	EndTime      int64  `json:"end_time"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount"`
	// AttachedValue is required for native-token auctions and must equal
	// the amount being locked (the raise, for a re-bid).
	AttachedValue int64 `json:"attached_value"`
}

type WithdrawBidRequest struct {
	Seq int64 `json:"seq"`
}

type PayEscrowRequest struct {
	Payee string `json:"payee,omitempty"`
}

type ManualResultRequest struct {
	WinningSeq int64 `json:"winning_seq"`
}

type VerifyVoucherRequest struct {
	Voucher models.Voucher `json:"voucher"`
}

type RedeemVoucherRequest struct {
	Voucher       models.Voucher `json:"voucher"`
	Paid          int64          `json:"paid"`
	AttachedValue int64          `json:"attached_value"`
}

type ApproveAllowanceRequest struct {
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

type ApproveAssetRequest struct {
	Contract string `json:"contract"`
	Approved bool   `json:"approved"`
}

type UpdateFeeRequest struct {
	FeeBPS    int    `json:"fee_bps"`
	Recipient string `json:"recipient,omitempty"`
}

type UpdateLockRequest struct {
	Seconds int64 `json:"seconds"`
}

type RegisterTokenRequest struct {
	Token string `json:"token"`
}
