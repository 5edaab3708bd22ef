package engine

import (
	"errors"
	"fmt"
)

// Error categories. Every engine error wraps exactly one of these so the
// transport layer can map it to a status code with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrState         = errors.New("state error")
	ErrFunds         = errors.New("funds error")
)

// Validation: the request itself is malformed or out of bounds.
var (
	ErrBidTooLow         = fmt.Errorf("%w: bid does not exceed current highest", ErrValidation)
	ErrInvalidWindow     = fmt.Errorf("%w: invalid auction time window", ErrValidation)
	ErrUnregisteredToken = fmt.Errorf("%w: pay token is not registered", ErrValidation)
	ErrEscrowMismatch    = fmt.Errorf("%w: escrow sequence does not match", ErrValidation)
	ErrInvalidWinner     = fmt.Errorf("%w: winning sequence matches no escrow entry", ErrValidation)
	ErrMalformedVoucher  = fmt.Errorf("%w: malformed voucher", ErrValidation)
	ErrPriceTooLow       = fmt.Errorf("%w: payment below voucher minimum", ErrValidation)
)

// Authorization: the caller is not allowed to perform the operation.
var (
	ErrNotSeller        = fmt.Errorf("%w: caller is not the seller", ErrAuthorization)
	ErrNotOperator      = fmt.Errorf("%w: caller is not an operator", ErrAuthorization)
	ErrAssetNotApproved = fmt.Errorf("%w: engine not approved for the asset", ErrAuthorization)
	ErrInvalidSignature = fmt.Errorf("%w: signature verification failed", ErrAuthorization)
)

// State: the operation is well-formed but the entity is in the wrong state.
var (
	ErrNotActive        = fmt.Errorf("%w: auction is not active", ErrState)
	ErrNotEnded         = fmt.Errorf("%w: auction has not ended", ErrState)
	ErrAlreadyResulted  = fmt.Errorf("%w: auction already resulted", ErrState)
	ErrNoBids           = fmt.Errorf("%w: auction has no qualifying bids", ErrState)
	ErrAlreadyPaid      = fmt.Errorf("%w: escrow already paid out", ErrState)
	ErrAlreadyRedeemed  = fmt.Errorf("%w: voucher already redeemed", ErrState)
	ErrNotOutbid        = fmt.Errorf("%w: highest bidder cannot withdraw", ErrState)
	ErrNoEscrow         = fmt.Errorf("%w: no escrow entry for bidder", ErrState)
	ErrLockNotElapsed   = fmt.Errorf("%w: withdrawal lock has not elapsed", ErrState)
	ErrDuplicateAuction = fmt.Errorf("%w: asset already has a live auction", ErrState)
)

// Funds: moving value failed.
var (
	ErrInsufficientFunds     = fmt.Errorf("%w: insufficient balance", ErrFunds)
	ErrInsufficientAllowance = fmt.Errorf("%w: insufficient allowance", ErrFunds)
	ErrValueMismatch         = fmt.Errorf("%w: attached value does not match amount", ErrFunds)
	ErrTransferFailed        = fmt.Errorf("%w: transfer failed", ErrFunds)
)
