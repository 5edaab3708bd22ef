package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/events"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

// AuctionService drives the auction lifecycle: create, bid, withdraw,
// result, cancel, pay out. All mutations of one asset run under its keyed
// mutex, and every operation validates fully before touching funds or state.
type AuctionService struct {
	auctions  storage.AuctionStore
	escrows   storage.EscrowStore
	audits    storage.AuditStore
	assets    ledger.AssetLedger
	payments  *ledger.Payments
	publisher events.Publisher
	cfg       *config.Config
	clock     engine.Clock
	locks     *engine.KeyedMutex
	fees      *FeeConfig
	log       *zap.Logger
}

func NewAuctionService(
	auctions storage.AuctionStore,
	escrows storage.EscrowStore,
	audits storage.AuditStore,
	assets ledger.AssetLedger,
	payments *ledger.Payments,
	publisher events.Publisher,
	cfg *config.Config,
	clock engine.Clock,
	fees *FeeConfig,
	log *zap.Logger,
) *AuctionService {
	return &AuctionService{
		auctions:  auctions,
		escrows:   escrows,
		audits:    audits,
		assets:    assets,
		payments:  payments,
		publisher: publisher,
		cfg:       cfg,
		clock:     clock,
		locks:     engine.NewKeyedMutex(),
		fees:      fees,
		log:       log,
	}
}

// transition validates and performs a status transition with audit logging.
func (s *AuctionService) transition(ctx context.Context, a *models.Auction, newStatus string, actor models.Address, actorType string) error {
	if !models.IsValidTransition(a.Status, newStatus) {
		return fmt.Errorf("%w: cannot move auction from %s to %s", engine.ErrState, a.Status, newStatus)
	}

	oldStatus := a.Status
	a.Status = newStatus
	a.UpdatedAt = s.clock.Now()
	if err := s.auctions.Update(ctx, a); err != nil {
		a.Status = oldStatus
		return err
	}

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      actor,
		ActorType:  actorType,
		Action:     fmt.Sprintf("auction_%s_to_%s", oldStatus, newStatus),
		EntityType: "auction",
		EntityKey:  a.AssetKey(),
		Meta:       map[string]any{"old_status": oldStatus, "new_status": newStatus},
		CreatedAt:  a.UpdatedAt,
	})

	return nil
}

func (s *AuctionService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.publisher.Publish(ctx, events.StreamAuction, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *AuctionService) CreateAuction(ctx context.Context, seller models.Address, asset models.AssetRef, payToken models.Address, reservePrice int64, start, end time.Time) (*models.Auction, error) {
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	if !end.After(start) {
		return nil, engine.ErrInvalidWindow
	}
	if reservePrice < 0 {
		return nil, fmt.Errorf("%w: reserve price cannot be negative", engine.ErrValidation)
	}

	if !payToken.IsNative() {
		registered, err := s.payments.Registered(ctx, payToken)
		if err != nil {
			return nil, err
		}
		if !registered {
			return nil, engine.ErrUnregisteredToken
		}
	}

	// Seller must hold the asset and have approved the engine vault.
	held, err := s.assets.BalanceOf(ctx, asset.Contract, asset.TokenID, seller)
	if err != nil {
		return nil, fmt.Errorf("asset balance lookup: %w", err)
	}
	if held < asset.Quantity {
		return nil, fmt.Errorf("%w: seller holds %d of %s, need %d", engine.ErrAuthorization, held, asset.Key(), asset.Quantity)
	}
	approved, err := s.assets.IsApprovedForAll(ctx, asset.Contract, seller, s.payments.Vault())
	if err != nil {
		return nil, fmt.Errorf("asset approval lookup: %w", err)
	}
	if !approved {
		return nil, engine.ErrAssetNotApproved
	}

	unlock := s.locks.Lock(asset.Key())
	defer unlock()

	now := s.clock.Now()
	a := &models.Auction{
		ID:           uuid.New(),
		Contract:     asset.Contract,
		TokenID:      asset.TokenID,
		Quantity:     asset.Quantity,
		Seller:       seller,
		PayToken:     payToken,
		ReservePrice: reservePrice,
		StartTime:    start,
		EndTime:      end,
		Status:       models.AuctionStatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.auctions.Insert(ctx, a); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, engine.ErrDuplicateAuction
		}
		return nil, err
	}

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      seller,
		ActorType:  "user",
		Action:     "auction_created",
		EntityType: "auction",
		EntityKey:  a.AssetKey(),
		Meta:       map[string]any{"reserve_price": reservePrice, "pay_token": string(payToken)},
		CreatedAt:  now,
	})
	s.publish(ctx, events.EventAuctionCreated, map[string]any{
		"asset":   a.AssetKey(),
		"seller":  string(seller),
		"reserve": reservePrice,
		"start":   start.Unix(),
		"end":     end.Unix(),
	})

	return a, nil
}

// PlaceBid locks the bid amount in escrow and promotes the bidder to
// highest. A re-bid by the same bidder locks only the raise; the attached
// value (native auctions) must equal exactly what is being locked.
func (s *AuctionService) PlaceBid(ctx context.Context, contract models.Address, tokenID uint64, bidder models.Address, amount, attachedValue int64) (*models.EscrowEntry, error) {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	unlock := s.locks.Lock(assetKey)
	defer unlock()

	a, err := s.auctions.GetByAsset(ctx, assetKey)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !a.Live() || a.Phase(now) != models.PhaseActive {
		return nil, engine.ErrNotActive
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive", engine.ErrValidation)
	}
	// Strictly increasing; first bid must meet the reserve.
	if a.BidCount == 0 {
		if amount < a.ReservePrice {
			return nil, engine.ErrBidTooLow
		}
	} else if amount <= a.HighestBid {
		return nil, engine.ErrBidTooLow
	}

	var prior int64
	existing, err := s.escrows.Get(ctx, assetKey, bidder)
	switch {
	case err == nil:
		prior = existing.Amount
	case errors.Is(err, storage.ErrNotFound):
		// first bid from this bidder
	default:
		return nil, err
	}

	lockAmount := amount - prior
	if err := s.payments.Lock(ctx, a.PayToken, bidder, lockAmount, attachedValue); err != nil {
		return nil, err
	}

	seq := a.BidCount + 1
	entry := &models.EscrowEntry{
		AssetKey: assetKey,
		Bidder:   bidder,
		Amount:   amount,
		Seq:      seq,
		LockedAt: now,
	}
	if existing != nil {
		entry.ID = existing.ID
	}
	if err := s.escrows.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	a.HighestBid = amount
	a.HighestBidder = bidder
	a.BidCount = seq
	a.UpdatedAt = now
	if err := s.auctions.Update(ctx, a); err != nil {
		return nil, err
	}

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      bidder,
		ActorType:  "user",
		Action:     "bid_placed",
		EntityType: "escrow",
		EntityKey:  assetKey,
		Meta:       map[string]any{"amount": amount, "seq": seq, "locked": lockAmount},
		CreatedAt:  now,
	})
	s.publish(ctx, events.EventBidPlaced, map[string]any{
		"asset":  assetKey,
		"bidder": string(bidder),
		"amount": amount,
		"seq":    seq,
	})

	return entry, nil
}

// WithdrawBid refunds an outbid escrow entry. The caller quotes the
// sequence number from the bid receipt; a stale sequence is rejected.
func (s *AuctionService) WithdrawBid(ctx context.Context, contract models.Address, tokenID uint64, bidder models.Address, expectedSeq int64) error {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	unlock := s.locks.Lock(assetKey)
	defer unlock()

	a, err := s.auctions.GetByAsset(ctx, assetKey)
	if err != nil {
		return err
	}

	entry, err := s.escrows.Get(ctx, assetKey, bidder)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return engine.ErrNoEscrow
		}
		return err
	}
	if entry.Seq != expectedSeq {
		return engine.ErrEscrowMismatch
	}

	// The prospective winner's funds stay escrowed until the auction
	// settles one way or the other.
	switch a.Status {
	case models.AuctionStatusCreated:
		if a.HighestBidder == bidder {
			return engine.ErrNotOutbid
		}
	case models.AuctionStatusResulted:
		if a.Winner == bidder {
			return engine.ErrNotOutbid
		}
	}

	now := s.clock.Now()
	if now.Before(entry.LockedAt.Add(s.fees.WithdrawalLock())) {
		return engine.ErrLockNotElapsed
	}

	if err := s.payments.Release(ctx, a.PayToken, bidder, entry.Amount); err != nil {
		return err
	}
	if err := s.escrows.Delete(ctx, assetKey, bidder); err != nil {
		return err
	}

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      bidder,
		ActorType:  "user",
		Action:     "bid_withdrawn",
		EntityType: "escrow",
		EntityKey:  assetKey,
		Meta:       map[string]any{"amount": entry.Amount, "seq": entry.Seq},
		CreatedAt:  now,
	})
	s.publish(ctx, events.EventBidWithdrawn, map[string]any{
		"asset":  assetKey,
		"bidder": string(bidder),
		"amount": entry.Amount,
	})

	return nil
}

// ResultAuction settles an ended auction on its highest bid: computes the
// fee split, moves the asset to the winner and freezes the split on the
// auction record. Funds move later, in PayEscrow.
func (s *AuctionService) ResultAuction(ctx context.Context, contract models.Address, tokenID uint64, caller models.Address) (*models.Auction, error) {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	unlock := s.locks.Lock(assetKey)
	defer unlock()

	a, err := s.auctions.GetByAsset(ctx, assetKey)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSellerOrOperator(a, caller); err != nil {
		return nil, err
	}
	if err := s.resultable(a); err != nil {
		return nil, err
	}
	if a.BidCount == 0 || a.HighestBidder == "" {
		return nil, engine.ErrNoBids
	}

	return s.settle(ctx, a, a.HighestBidder, a.HighestBid, caller)
}

// ManualResultAuction settles on an explicit escrow sequence instead of the
// highest bid. Operator-only escape hatch for disputed auctions.
func (s *AuctionService) ManualResultAuction(ctx context.Context, contract models.Address, tokenID uint64, operator models.Address, winningSeq int64) (*models.Auction, error) {
	if !s.cfg.IsOperator(operator) {
		return nil, engine.ErrNotOperator
	}

	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	unlock := s.locks.Lock(assetKey)
	defer unlock()

	a, err := s.auctions.GetByAsset(ctx, assetKey)
	if err != nil {
		return nil, err
	}
	if err := s.resultable(a); err != nil {
		return nil, err
	}

	entry, err := s.escrows.GetBySeq(ctx, assetKey, winningSeq)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, engine.ErrInvalidWinner
		}
		return nil, err
	}
	if entry.Amount <= 0 {
		return nil, engine.ErrInvalidWinner
	}

	return s.settle(ctx, a, entry.Bidder, entry.Amount, operator)
}

func (s *AuctionService) resultable(a *models.Auction) error {
	switch a.Status {
	case models.AuctionStatusResulted, models.AuctionStatusPaid:
		return engine.ErrAlreadyResulted
	case models.AuctionStatusCancelled:
		return engine.ErrNotActive
	}
	if s.clock.Now().Before(a.EndTime) {
		return engine.ErrNotEnded
	}
	return nil
}

// settle moves the asset and freezes the fee split. Caller holds the asset
// lock and has validated the winner.
func (s *AuctionService) settle(ctx context.Context, a *models.Auction, winner models.Address, winningBid int64, actor models.Address) (*models.Auction, error) {
	feeBPS, _ := s.fees.Snapshot()
	split := engine.ComputeSettlement(winningBid, a.ReservePrice, feeBPS)

	if err := s.assets.TransferFrom(ctx, a.Asset(), a.Seller, winner); err != nil {
		return nil, err
	}

	a.Winner = winner
	a.WinningBid = winningBid
	a.PlatformFee = split.Fee
	a.SellerProceeds = split.SellerProceeds
	if err := s.transition(ctx, a, models.AuctionStatusResulted, actor, s.actorType(actor)); err != nil {
		// The result was not recorded; hand the asset back so the auction
		// can be resulted again.
		if undoErr := s.assets.TransferFrom(ctx, a.Asset(), winner, a.Seller); undoErr != nil {
			s.log.Error("failed to return asset after result rollback",
				zap.String("asset", a.AssetKey()), zap.Error(undoErr))
		}
		return nil, err
	}

	s.publish(ctx, events.EventAuctionResulted, map[string]any{
		"asset":       a.AssetKey(),
		"winner":      string(winner),
		"token":       string(a.PayToken),
		"winning_bid": winningBid,
	})

	return a, nil
}

// PayEscrow consumes the winner's escrow and pays out the frozen split:
// seller proceeds to payee, platform fee to the fee recipient. Each leg is
// checkpointed on the auction row as it lands, so a call that fails partway
// can be retried without paying any leg twice; once the status flips a
// further call gets AlreadyPaid.
func (s *AuctionService) PayEscrow(ctx context.Context, contract models.Address, tokenID uint64, caller, payee models.Address) error {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	unlock := s.locks.Lock(assetKey)
	defer unlock()

	a, err := s.auctions.GetByAsset(ctx, assetKey)
	if err != nil {
		return err
	}
	if err := s.authorizeSellerOrOperator(a, caller); err != nil {
		return err
	}
	switch a.Status {
	case models.AuctionStatusPaid:
		return engine.ErrAlreadyPaid
	case models.AuctionStatusResulted:
		// proceed
	default:
		return fmt.Errorf("%w: auction is not resulted", engine.ErrState)
	}

	if payee == "" {
		payee = a.Seller
	}

	// Both releases must land before the status flips; a failed release
	// leaves the auction resulted and the call retryable. The markers keep
	// a retry from re-releasing a leg that already landed.
	if !a.ProceedsPaid {
		if err := s.payments.Release(ctx, a.PayToken, payee, a.SellerProceeds); err != nil {
			return err
		}
		a.ProceedsPaid = true
		a.UpdatedAt = s.clock.Now()
		if err := s.auctions.Update(ctx, a); err != nil {
			return err
		}
	}
	_, feeRecipient := s.fees.Snapshot()
	if !a.FeePaid && a.PlatformFee > 0 && feeRecipient != "" {
		if err := s.payments.Release(ctx, a.PayToken, feeRecipient, a.PlatformFee); err != nil {
			return err
		}
		a.FeePaid = true
		a.UpdatedAt = s.clock.Now()
		if err := s.auctions.Update(ctx, a); err != nil {
			return err
		}
	}

	// The winner's escrow is consumed by the payout.
	if err := s.escrows.Delete(ctx, assetKey, a.Winner); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if err := s.transition(ctx, a, models.AuctionStatusPaid, caller, s.actorType(caller)); err != nil {
		return err
	}

	s.publish(ctx, events.EventEscrowPaid, map[string]any{
		"asset":           assetKey,
		"payee":           string(payee),
		"seller_proceeds": a.SellerProceeds,
		"platform_fee":    a.PlatformFee,
	})

	return nil
}

// CancelAuction refunds every escrowed bid and closes the auction. A refund
// failure aborts the cancellation; already-refunded entries stay refunded
// and the rest remain withdrawable.
func (s *AuctionService) CancelAuction(ctx context.Context, contract models.Address, tokenID uint64, caller models.Address) error {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	unlock := s.locks.Lock(assetKey)
	defer unlock()

	a, err := s.auctions.GetByAsset(ctx, assetKey)
	if err != nil {
		return err
	}
	if err := s.authorizeSellerOrOperator(a, caller); err != nil {
		return err
	}
	if a.Status != models.AuctionStatusCreated {
		return fmt.Errorf("%w: auction is already settled", engine.ErrState)
	}

	entries, err := s.escrows.ListByAsset(ctx, assetKey)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.payments.Release(ctx, a.PayToken, e.Bidder, e.Amount); err != nil {
			return fmt.Errorf("refund bidder %s: %w", e.Bidder, err)
		}
		if err := s.escrows.Delete(ctx, assetKey, e.Bidder); err != nil {
			return err
		}
	}

	a.HighestBid = 0
	a.HighestBidder = ""
	if err := s.transition(ctx, a, models.AuctionStatusCancelled, caller, s.actorType(caller)); err != nil {
		return err
	}

	s.publish(ctx, events.EventAuctionCancelled, map[string]any{"asset": assetKey})

	return nil
}

func (s *AuctionService) GetAuction(ctx context.Context, contract models.Address, tokenID uint64) (*models.Auction, error) {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	return s.auctions.GetByAsset(ctx, assetKey)
}

func (s *AuctionService) ListAuctions(ctx context.Context, status string, limit int) ([]*models.Auction, error) {
	return s.auctions.List(ctx, status, limit)
}

func (s *AuctionService) ListEscrow(ctx context.Context, contract models.Address, tokenID uint64) ([]*models.EscrowEntry, error) {
	assetKey := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	return s.escrows.ListByAsset(ctx, assetKey)
}

// UpdateFeeConfig changes the platform fee and recipient for settlements
// resulted from now on; already-frozen splits are unaffected.
func (s *AuctionService) UpdateFeeConfig(ctx context.Context, operator models.Address, feeBPS int, recipient models.Address) error {
	if !s.cfg.IsOperator(operator) {
		return engine.ErrNotOperator
	}
	if feeBPS < 0 || feeBPS > 10000 {
		return fmt.Errorf("%w: fee must be within [0, 10000] bps", engine.ErrValidation)
	}

	s.fees.SetFee(feeBPS, recipient)

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      operator,
		ActorType:  "operator",
		Action:     "fee_config_updated",
		EntityType: "auction",
		Meta:       map[string]any{"fee_bps": feeBPS, "recipient": string(recipient)},
		CreatedAt:  s.clock.Now(),
	})
	return nil
}

// UpdateWithdrawalLock changes the bid withdrawal cooldown.
func (s *AuctionService) UpdateWithdrawalLock(ctx context.Context, operator models.Address, lock time.Duration) error {
	if !s.cfg.IsOperator(operator) {
		return engine.ErrNotOperator
	}
	if lock < 0 {
		return fmt.Errorf("%w: lock duration cannot be negative", engine.ErrValidation)
	}

	s.fees.SetWithdrawalLock(lock)

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      operator,
		ActorType:  "operator",
		Action:     "withdrawal_lock_updated",
		EntityType: "auction",
		Meta:       map[string]any{"lock_seconds": int64(lock / time.Second)},
		CreatedAt:  s.clock.Now(),
	})
	return nil
}

// FeeBPS returns the current platform fee rate.
func (s *AuctionService) FeeBPS() int {
	return s.fees.FeeBPS()
}

func (s *AuctionService) authorizeSellerOrOperator(a *models.Auction, caller models.Address) error {
	if caller == a.Seller || s.cfg.IsOperator(caller) {
		return nil
	}
	return engine.ErrNotSeller
}

func (s *AuctionService) actorType(actor models.Address) string {
	if s.cfg.IsOperator(actor) {
		return "operator"
	}
	return "user"
}
