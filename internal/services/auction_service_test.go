package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/events"
	"github.com/nft-auction/backend/internal/ledger"
	ledgermem "github.com/nft-auction/backend/internal/ledger/memory"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
	storemem "github.com/nft-auction/backend/internal/storage/memory"
)

const nano = int64(1_000_000_000)

var (
	vault        = models.Address("VaultVaultVaultVaultVaultVaultVa")
	operator     = models.Address("OperatorOperatorOperatorOperator")
	feeRecipient = models.Address("FeeRecipientFeeRecipientFeeRecip")
	seller       = models.Address("SellerSellerSellerSellerSellerSe")
	bidder1      = models.Address("Bidder1Bidder1Bidder1Bidder1Bidd")
	bidder2      = models.Address("Bidder2Bidder2Bidder2Bidder2Bidd")
	bidder3      = models.Address("Bidder3Bidder3Bidder3Bidder3Bidd")
	mockToken    = models.Address("MockTokenMockTokenMockTokenMockT")
	collection   = models.Address("CollectionCollectionCollectionCo")
)

// failingFungible wraps the in-memory ledger and rejects transfers to one
// recipient, to exercise payout retry paths.
type failingFungible struct {
	*ledgermem.FungibleLedger
	failTo models.Address
}

func (l *failingFungible) Transfer(ctx context.Context, token, from, to models.Address, amount int64) error {
	if l.failTo != "" && to == l.failTo {
		return errors.New("transfer rejected")
	}
	return l.FungibleLedger.Transfer(ctx, token, from, to, amount)
}

// failingAssets rejects mints while armed.
type failingAssets struct {
	*ledgermem.AssetLedger
	failMint bool
}

func (l *failingAssets) Mint(ctx context.Context, asset models.AssetRef, to models.Address, uri string) error {
	if l.failMint {
		return errors.New("mint rejected")
	}
	return l.AssetLedger.Mint(ctx, asset, to, uri)
}

// failingAuctions rejects updates while armed.
type failingAuctions struct {
	storage.AuctionStore
	failUpdate bool
}

func (s *failingAuctions) Update(ctx context.Context, a *models.Auction) error {
	if s.failUpdate {
		return errors.New("update rejected")
	}
	return s.AuctionStore.Update(ctx, a)
}

type fixture struct {
	svc      *AuctionService
	fungible *failingFungible
	native   *ledgermem.NativeLedger
	assets   *failingAssets
	auctions *failingAuctions
	payments *ledger.Payments
	clock    *engine.MockClock
	recorder *events.Recorder
	fees     *FeeConfig
	start    time.Time
	end      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		PlatformFeeBPS:           250,
		FeeRecipient:             feeRecipient,
		VaultAccount:             vault,
		BidWithdrawalLockSeconds: 0,
		OperatorAccounts:         []models.Address{operator},
	}

	fungible := &failingFungible{FungibleLedger: ledgermem.NewFungibleLedger()}
	native := ledgermem.NewNativeLedger()
	assets := &failingAssets{AssetLedger: ledgermem.NewAssetLedger()}
	registry := ledgermem.NewTokenRegistry(mockToken)
	payments := ledger.NewPayments(fungible, native, registry, vault)
	auctions := &failingAuctions{AuctionStore: storemem.NewAuctionStore()}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := engine.NewMockClock(start)
	recorder := events.NewRecorder()
	fees := NewFeeConfig(cfg)

	svc := NewAuctionService(
		auctions,
		storemem.NewEscrowStore(),
		storemem.NewAuditStore(),
		assets, payments, recorder, cfg, clock, fees,
		zap.NewNop(),
	)

	return &fixture{
		svc:      svc,
		fungible: fungible,
		native:   native,
		assets:   assets,
		auctions: auctions,
		payments: payments,
		clock:    clock,
		recorder: recorder,
		fees:     fees,
		start:    start,
		end:      start.Add(time.Hour),
	}
}

// seedAsset mints the asset to the seller and approves the vault.
func (f *fixture) seedAsset(t *testing.T, tokenID uint64, quantity int64) models.AssetRef {
	t.Helper()
	ctx := context.Background()
	asset := models.AssetRef{Contract: collection, TokenID: tokenID, Quantity: quantity}
	require.NoError(t, f.assets.Mint(ctx, asset, seller, "ipfs://QmSeeded"))
	require.NoError(t, f.assets.SetApprovalForAll(ctx, collection, seller, vault, true))
	return asset
}

// fundToken credits the mock token and approves the vault to spend it.
func (f *fixture) fundToken(t *testing.T, account models.Address, amount int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.fungible.Credit(ctx, mockToken, account, amount))
	require.NoError(t, f.fungible.Approve(ctx, mockToken, account, vault, amount))
}

func (f *fixture) tokenBalance(t *testing.T, account models.Address) int64 {
	t.Helper()
	got, err := f.fungible.BalanceOf(context.Background(), mockToken, account)
	require.NoError(t, err)
	return got
}

func TestAuctionLifecycleWithToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	f.fundToken(t, bidder2, 25*nano)
	f.fundToken(t, bidder3, 30*nano)

	f.clock.Advance(time.Minute)

	// Reserve-meeting opening bid, then two raises.
	e1, err := f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e1.Seq)

	e2, err := f.svc.PlaceBid(ctx, collection, 1, bidder2, 25*nano, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e2.Seq)

	e3, err := f.svc.PlaceBid(ctx, collection, 1, bidder3, 30*nano, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e3.Seq)

	// All three bids are escrowed in the vault.
	assert.Equal(t, 75*nano, f.tokenBalance(t, vault))

	// Equal bid is a tie, rejected.
	f.fundToken(t, bidder1, 10*nano)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 30*nano, 0)
	assert.ErrorIs(t, err, engine.ErrBidTooLow)

	f.clock.Set(f.end)
	a, err := f.svc.ResultAuction(ctx, collection, 1, seller)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusResulted, a.Status)
	assert.Equal(t, bidder3, a.Winner)

	// Fee applies to the surplus above reserve: 2.5% of 10 = 0.25.
	assert.Equal(t, nano/4, a.PlatformFee)
	assert.Equal(t, 30*nano-nano/4, a.SellerProceeds)

	// Asset moved to the winner at result time.
	held, err := f.assets.BalanceOf(ctx, collection, 1, bidder3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)

	require.NoError(t, f.svc.PayEscrow(ctx, collection, 1, seller, ""))
	assert.Equal(t, 30*nano-nano/4, f.tokenBalance(t, seller))
	assert.Equal(t, nano/4, f.tokenBalance(t, feeRecipient))

	// Second payout attempt must not double-pay.
	err = f.svc.PayEscrow(ctx, collection, 1, seller, "")
	assert.ErrorIs(t, err, engine.ErrAlreadyPaid)

	// Outbid bidders recover exactly what they locked.
	require.NoError(t, f.svc.WithdrawBid(ctx, collection, 1, bidder1, 1))
	require.NoError(t, f.svc.WithdrawBid(ctx, collection, 1, bidder2, 2))
	assert.Equal(t, 30*nano, f.tokenBalance(t, bidder1)) // 20 refunded + 10 re-credit
	assert.Equal(t, 25*nano, f.tokenBalance(t, bidder2))
	assert.Equal(t, int64(0), f.tokenBalance(t, vault))

	assert.Equal(t, []string{
		events.EventAuctionCreated,
		events.EventBidPlaced,
		events.EventBidPlaced,
		events.EventBidPlaced,
		events.EventAuctionResulted,
		events.EventEscrowPaid,
		events.EventBidWithdrawn,
		events.EventBidWithdrawn,
	}, f.recorder.Types())
}

func TestAuctionLifecycleNative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 7, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, models.NativeToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	require.NoError(t, f.native.Credit(ctx, bidder1, 40*nano))
	f.clock.Advance(time.Minute)

	// Native bids attach exactly the amount being locked.
	_, err = f.svc.PlaceBid(ctx, collection, 7, bidder1, 20*nano, 19*nano)
	assert.ErrorIs(t, err, engine.ErrValueMismatch)

	_, err = f.svc.PlaceBid(ctx, collection, 7, bidder1, 20*nano, 20*nano)
	require.NoError(t, err)

	// A raise by the same bidder locks only the delta.
	entry, err := f.svc.PlaceBid(ctx, collection, 7, bidder1, 30*nano, 10*nano)
	require.NoError(t, err)
	assert.Equal(t, 30*nano, entry.Amount)
	assert.Equal(t, int64(2), entry.Seq)

	locked, err := f.native.BalanceOf(ctx, vault)
	require.NoError(t, err)
	assert.Equal(t, 30*nano, locked)

	f.clock.Set(f.end)
	a, err := f.svc.ResultAuction(ctx, collection, 7, operator)
	require.NoError(t, err)
	assert.Equal(t, bidder1, a.Winner)

	require.NoError(t, f.svc.PayEscrow(ctx, collection, 7, operator, ""))

	sellerBal, err := f.native.BalanceOf(ctx, seller)
	require.NoError(t, err)
	feeBal, err := f.native.BalanceOf(ctx, feeRecipient)
	require.NoError(t, err)
	assert.Equal(t, 30*nano, sellerBal+feeBal) // settlement conservation
	assert.Equal(t, nano/4, feeBal)
}

func TestCreateAuctionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	// end <= start
	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.end, f.start)
	assert.ErrorIs(t, err, engine.ErrInvalidWindow)
	assert.ErrorIs(t, err, engine.ErrValidation)

	// unregistered pay token
	_, err = f.svc.CreateAuction(ctx, seller, asset, "UnknownTokenUnknownTokenUnknownT", 20*nano, f.start, f.end)
	assert.ErrorIs(t, err, engine.ErrUnregisteredToken)

	// unapproved asset
	other := models.AssetRef{Contract: collection, TokenID: 2, Quantity: 1}
	require.NoError(t, f.assets.Mint(ctx, other, bidder1, ""))
	_, err = f.svc.CreateAuction(ctx, bidder1, other, mockToken, 20*nano, f.start, f.end)
	assert.ErrorIs(t, err, engine.ErrAssetNotApproved)

	// duplicate live auction
	_, err = f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)
	_, err = f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	assert.ErrorIs(t, err, engine.ErrDuplicateAuction)
	assert.ErrorIs(t, err, engine.ErrState)
}

func TestPlaceBidTiming(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	later := f.start.Add(30 * time.Minute)
	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, later, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)

	// Before start.
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	assert.ErrorIs(t, err, engine.ErrNotActive)
	assert.ErrorIs(t, err, engine.ErrState)

	// At end.
	f.clock.Set(f.end)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	assert.ErrorIs(t, err, engine.ErrNotActive)

	// Below reserve while active.
	f.clock.Set(later)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 19*nano, 0)
	assert.ErrorIs(t, err, engine.ErrBidTooLow)
}

func TestWithdrawBidRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	f.fundToken(t, bidder2, 25*nano)
	f.clock.Advance(time.Minute)

	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	require.NoError(t, err)

	// Highest bidder cannot pull a winning bid.
	err = f.svc.WithdrawBid(ctx, collection, 1, bidder1, 1)
	assert.ErrorIs(t, err, engine.ErrNotOutbid)

	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder2, 25*nano, 0)
	require.NoError(t, err)

	// Wrong sequence.
	err = f.svc.WithdrawBid(ctx, collection, 1, bidder1, 9)
	assert.ErrorIs(t, err, engine.ErrEscrowMismatch)

	// Nothing escrowed for this bidder.
	err = f.svc.WithdrawBid(ctx, collection, 1, bidder3, 1)
	assert.ErrorIs(t, err, engine.ErrNoEscrow)

	// Cooldown applies from the lock timestamp.
	f.fees.SetWithdrawalLock(20 * time.Minute)
	err = f.svc.WithdrawBid(ctx, collection, 1, bidder1, 1)
	assert.ErrorIs(t, err, engine.ErrLockNotElapsed)

	f.clock.Advance(20 * time.Minute)
	require.NoError(t, f.svc.WithdrawBid(ctx, collection, 1, bidder1, 1))
	assert.Equal(t, 20*nano, f.tokenBalance(t, bidder1))
}

func TestResultAuctionRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	// Not ended yet.
	_, err = f.svc.ResultAuction(ctx, collection, 1, seller)
	assert.ErrorIs(t, err, engine.ErrNotEnded)

	// Only seller or operator.
	f.clock.Set(f.end)
	_, err = f.svc.ResultAuction(ctx, collection, 1, bidder1)
	assert.ErrorIs(t, err, engine.ErrNotSeller)
	assert.ErrorIs(t, err, engine.ErrAuthorization)

	// No bids were placed.
	_, err = f.svc.ResultAuction(ctx, collection, 1, seller)
	assert.ErrorIs(t, err, engine.ErrNoBids)
}

func TestManualResultAuction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	f.fundToken(t, bidder2, 25*nano)
	f.clock.Advance(time.Minute)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder2, 25*nano, 0)
	require.NoError(t, err)

	f.clock.Set(f.end)

	// Operator only.
	_, err = f.svc.ManualResultAuction(ctx, collection, 1, seller, 1)
	assert.ErrorIs(t, err, engine.ErrNotOperator)

	// Sequence must match a recorded escrow entry.
	_, err = f.svc.ManualResultAuction(ctx, collection, 1, operator, 42)
	assert.ErrorIs(t, err, engine.ErrInvalidWinner)

	// Override to the first bidder instead of the highest.
	a, err := f.svc.ManualResultAuction(ctx, collection, 1, operator, 1)
	require.NoError(t, err)
	assert.Equal(t, bidder1, a.Winner)
	assert.Equal(t, 20*nano, a.WinningBid)
	assert.Equal(t, int64(0), a.PlatformFee) // winning bid at reserve, no surplus

	// Resulting again is rejected.
	_, err = f.svc.ResultAuction(ctx, collection, 1, seller)
	assert.ErrorIs(t, err, engine.ErrAlreadyResulted)
}

func TestCancelAuctionRefundsEscrow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	f.fundToken(t, bidder2, 25*nano)
	f.clock.Advance(time.Minute)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder2, 25*nano, 0)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelAuction(ctx, collection, 1, seller))

	// Every locked bid is refunded before the auction closes.
	assert.Equal(t, 20*nano, f.tokenBalance(t, bidder1))
	assert.Equal(t, 25*nano, f.tokenBalance(t, bidder2))
	assert.Equal(t, int64(0), f.tokenBalance(t, vault))

	a, err := f.svc.GetAuction(ctx, collection, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCancelled, a.Status)

	// The seller still holds the asset.
	held, err := f.assets.BalanceOf(ctx, collection, 1, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)

	err = f.svc.CancelAuction(ctx, collection, 1, seller)
	assert.ErrorIs(t, err, engine.ErrState)
}

func TestMultiQuantityAuction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 9, 10)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	f.clock.Advance(time.Minute)
	_, err = f.svc.PlaceBid(ctx, collection, 9, bidder1, 20*nano, 0)
	require.NoError(t, err)

	f.clock.Set(f.end)
	_, err = f.svc.ResultAuction(ctx, collection, 9, seller)
	require.NoError(t, err)

	// The full lot moved to the winner.
	held, err := f.assets.BalanceOf(ctx, collection, 9, bidder1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), held)
}

func TestPayEscrowRetryAfterFeeFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 30*nano)
	f.clock.Advance(time.Minute)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 30*nano, 0)
	require.NoError(t, err)

	f.clock.Set(f.end)
	_, err = f.svc.ResultAuction(ctx, collection, 1, seller)
	require.NoError(t, err)

	// The fee transfer fails after the proceeds already landed.
	f.fungible.failTo = feeRecipient
	err = f.svc.PayEscrow(ctx, collection, 1, seller, "")
	require.Error(t, err)

	a, err := f.svc.GetAuction(ctx, collection, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusResulted, a.Status)
	assert.True(t, a.ProceedsPaid)
	assert.False(t, a.FeePaid)
	assert.Equal(t, 30*nano-nano/4, f.tokenBalance(t, seller))

	// The retry pays only the missing fee leg; the seller is not paid twice
	// and fee + proceeds add up to the winning bid.
	f.fungible.failTo = ""
	require.NoError(t, f.svc.PayEscrow(ctx, collection, 1, seller, ""))
	assert.Equal(t, 30*nano-nano/4, f.tokenBalance(t, seller))
	assert.Equal(t, nano/4, f.tokenBalance(t, feeRecipient))
	assert.Equal(t, int64(0), f.tokenBalance(t, vault))

	a, err = f.svc.GetAuction(ctx, collection, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusPaid, a.Status)
}

func TestResultAuctionStoreFailureReturnsAsset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.seedAsset(t, 1, 1)

	_, err := f.svc.CreateAuction(ctx, seller, asset, mockToken, 20*nano, f.start, f.end)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	f.clock.Advance(time.Minute)
	_, err = f.svc.PlaceBid(ctx, collection, 1, bidder1, 20*nano, 0)
	require.NoError(t, err)

	f.clock.Set(f.end)
	f.auctions.failUpdate = true
	_, err = f.svc.ResultAuction(ctx, collection, 1, seller)
	require.Error(t, err)

	// The unrecorded result handed the asset back; the auction is still
	// open for another attempt.
	held, err := f.assets.BalanceOf(ctx, collection, 1, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)

	a, err := f.svc.GetAuction(ctx, collection, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCreated, a.Status)

	f.auctions.failUpdate = false
	a, err = f.svc.ResultAuction(ctx, collection, 1, seller)
	require.NoError(t, err)
	assert.Equal(t, bidder1, a.Winner)
}

func TestUpdateFeeConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.svc.UpdateFeeConfig(ctx, bidder1, 500, "")
	assert.ErrorIs(t, err, engine.ErrNotOperator)

	err = f.svc.UpdateFeeConfig(ctx, operator, 10001, "")
	assert.ErrorIs(t, err, engine.ErrValidation)

	require.NoError(t, f.svc.UpdateFeeConfig(ctx, operator, 500, ""))
	assert.Equal(t, 500, f.svc.FeeBPS())

	err = f.svc.UpdateWithdrawalLock(ctx, operator, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), f.fees.WithdrawalLock())
}
