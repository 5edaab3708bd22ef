package services

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/events"
	"github.com/nft-auction/backend/internal/models"
	storemem "github.com/nft-auction/backend/internal/storage/memory"
	"github.com/nft-auction/backend/internal/voucher"
)

func newVoucherService(t *testing.T, f *fixture) *VoucherService {
	t.Helper()
	return NewVoucherService(
		storemem.NewRedemptionStore(),
		storemem.NewAuditStore(),
		f.assets, f.payments, f.recorder, f.clock, f.fees,
		zap.NewNop(),
	)
}

func signedVoucher(t *testing.T, tokenID uint64, quantity, minPrice int64, payToken models.Address) (models.Voucher, models.Address) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	v, err := voucher.Sign(models.Voucher{
		Contract: collection,
		TokenID:  tokenID,
		Quantity: quantity,
		MinPrice: minPrice,
		URI:      "ipfs://QmLazyMintContent",
		PayToken: payToken,
	}, priv)
	require.NoError(t, err)
	return v, v.Creator
}

func TestRedeemVoucher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	// 5 units at 4 each: minimum total 20; redeemer pays 30.
	v, creator := signedVoucher(t, 11, 5, 4*nano, mockToken)
	f.fundToken(t, bidder1, 30*nano)

	record, err := svc.Redeem(ctx, v, bidder1, 30*nano, 0)
	require.NoError(t, err)
	assert.Equal(t, creator, record.Creator)

	// The lot is minted directly to the redeemer.
	held, err := f.assets.BalanceOf(ctx, collection, 11, bidder1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), held)

	// Creator receives the payment minus the surplus fee (2.5% of 10).
	assert.Equal(t, 30*nano-nano/4, f.tokenBalance(t, creator))
	assert.Equal(t, nano/4, f.tokenBalance(t, feeRecipient))

	types := f.recorder.Types()
	assert.Equal(t, []string{events.EventVoucherRedeemed}, types)
}

func TestRedeemVoucherNative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	v, creator := signedVoucher(t, 12, 1, 20*nano, models.NativeToken)
	require.NoError(t, f.native.Credit(ctx, bidder1, 20*nano))

	// Attached value must equal the payment.
	_, err := svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	assert.ErrorIs(t, err, engine.ErrValueMismatch)

	_, err = svc.Redeem(ctx, v, bidder1, 20*nano, 20*nano)
	require.NoError(t, err)

	got, err := f.native.BalanceOf(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, 20*nano, got) // payment at minimum carries no fee
}

func TestRedeemVoucherSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	v, _ := signedVoucher(t, 13, 1, 20*nano, mockToken)
	f.fundToken(t, bidder1, 20*nano)
	f.fundToken(t, bidder2, 20*nano)

	_, err := svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	require.NoError(t, err)

	// Second redemption fails and moves no funds.
	_, err = svc.Redeem(ctx, v, bidder2, 20*nano, 0)
	assert.ErrorIs(t, err, engine.ErrAlreadyRedeemed)
	assert.ErrorIs(t, err, engine.ErrState)
	assert.Equal(t, 20*nano, f.tokenBalance(t, bidder2))

	// Only one lot exists.
	held1, err := f.assets.BalanceOf(ctx, collection, 13, bidder1)
	require.NoError(t, err)
	held2, err := f.assets.BalanceOf(ctx, collection, 13, bidder2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), held1)
	assert.Equal(t, int64(0), held2)
}

func TestRedeemVoucherRetryAfterMintFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	v, creator := signedVoucher(t, 16, 1, 20*nano, mockToken)
	f.fundToken(t, bidder1, 20*nano)

	f.assets.failMint = true
	_, err := svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	require.Error(t, err)

	// The payment stays locked; nothing minted, nothing paid out.
	assert.Equal(t, int64(0), f.tokenBalance(t, bidder1))
	assert.Equal(t, 20*nano, f.tokenBalance(t, vault))
	assert.Equal(t, int64(0), f.tokenBalance(t, creator))

	// Another account cannot take over the half-settled redemption.
	f.fundToken(t, bidder2, 20*nano)
	_, err = svc.Redeem(ctx, v, bidder2, 20*nano, 0)
	assert.ErrorIs(t, err, engine.ErrAlreadyRedeemed)

	// The redeemer's retry finishes the redemption without paying again.
	f.assets.failMint = false
	record, err := svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	require.NoError(t, err)
	assert.True(t, record.Settled())

	held, err := f.assets.BalanceOf(ctx, collection, 16, bidder1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)
	assert.Equal(t, 20*nano, f.tokenBalance(t, creator))
	assert.Equal(t, int64(0), f.tokenBalance(t, vault))

	// Fully settled now; a further call is rejected.
	_, err = svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	assert.ErrorIs(t, err, engine.ErrAlreadyRedeemed)
}

func TestRedeemVoucherRetryAfterProceedsFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	v, creator := signedVoucher(t, 17, 2, 10*nano, mockToken)
	f.fundToken(t, bidder1, 20*nano)

	f.fungible.failTo = creator
	_, err := svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	require.Error(t, err)

	f.fungible.failTo = ""
	record, err := svc.Redeem(ctx, v, bidder1, 20*nano, 0)
	require.NoError(t, err)
	assert.True(t, record.Settled())

	// The mint from the first attempt was not repeated.
	held, err := f.assets.BalanceOf(ctx, collection, 17, bidder1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), held)
	assert.Equal(t, 20*nano, f.tokenBalance(t, creator))
	assert.Equal(t, int64(0), f.tokenBalance(t, vault))
}

func TestRedeemReissuedVoucherSameToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	first, err := voucher.Sign(models.Voucher{
		Contract: collection,
		TokenID:  18,
		Quantity: 1,
		MinPrice: 20 * nano,
		URI:      "ipfs://QmFirstEdition",
		PayToken: mockToken,
	}, priv)
	require.NoError(t, err)

	f.fundToken(t, bidder1, 20*nano)
	_, err = svc.Redeem(ctx, first, bidder1, 20*nano, 0)
	require.NoError(t, err)

	// The creator reissues the same token id at a new quantity and price;
	// the fresh signature is a fresh digest and redeems normally.
	second, err := voucher.Sign(models.Voucher{
		Contract: collection,
		TokenID:  18,
		Quantity: 2,
		MinPrice: 5 * nano,
		URI:      "ipfs://QmSecondEdition",
		PayToken: mockToken,
	}, priv)
	require.NoError(t, err)

	f.fundToken(t, bidder2, 10*nano)
	_, err = svc.Redeem(ctx, second, bidder2, 10*nano, 0)
	require.NoError(t, err)

	held, err := f.assets.BalanceOf(ctx, collection, 18, bidder2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), held)
}

func TestVerifyVoucher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	v, creator := signedVoucher(t, 15, 3, 10*nano, mockToken)

	status, err := svc.Verify(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, creator, status.Creator)
	assert.Equal(t, 30*nano, status.MinTotal)
	assert.False(t, status.Redeemed)

	// Verification is a dry run: the voucher is still redeemable, and shows
	// up as consumed afterwards.
	f.fundToken(t, bidder1, 30*nano)
	_, err = svc.Redeem(ctx, v, bidder1, 30*nano, 0)
	require.NoError(t, err)

	status, err = svc.Verify(ctx, v)
	require.NoError(t, err)
	assert.True(t, status.Redeemed)
}

func TestRedeemVoucherValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newVoucherService(t, f)

	v, _ := signedVoucher(t, 14, 2, 10*nano, mockToken)
	f.fundToken(t, bidder1, 30*nano)

	// Below quantity * min price.
	_, err := svc.Redeem(ctx, v, bidder1, 19*nano, 0)
	assert.ErrorIs(t, err, engine.ErrPriceTooLow)
	assert.ErrorIs(t, err, engine.ErrValidation)

	// Tampered voucher.
	tampered := v
	tampered.MinPrice = 1
	_, err = svc.Redeem(ctx, tampered, bidder1, 30*nano, 0)
	assert.ErrorIs(t, err, engine.ErrInvalidSignature)
	assert.ErrorIs(t, err, engine.ErrAuthorization)

	// Nothing was locked by the failed attempts.
	assert.Equal(t, 30*nano, f.tokenBalance(t, bidder1))
}
