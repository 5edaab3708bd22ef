package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

func TestRedemptionStore_SingleUse(t *testing.T) {
	store := NewRedemptionStore()
	ctx := context.Background()

	r := &models.VoucherRedemption{
		ID:         uuid.New(),
		Digest:     "aabbcc",
		Creator:    "CreatorCreatorCreatorCreatorCrea",
		Contract:   "nft",
		TokenID:    1,
		Redeemer:   "RedeemerRedeemerRedeemerRedeemer",
		Paid:       20_000_000_000,
		RedeemedAt: time.Now().UTC(),
	}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Same digest.
	dup := *r
	dup.ID = uuid.New()
	if err := store.Insert(ctx, &dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for same digest, got %v", err)
	}

	// A reissued voucher for the same asset carries a fresh digest and is a
	// fresh redemption.
	resigned := *r
	resigned.ID = uuid.New()
	resigned.Digest = "ddeeff"
	if err := store.Insert(ctx, &resigned); err != nil {
		t.Fatalf("Insert of reissued voucher failed: %v", err)
	}

	got, err := store.GetByDigest(ctx, "aabbcc")
	if err != nil {
		t.Fatalf("GetByDigest failed: %v", err)
	}
	if got.Redeemer != r.Redeemer {
		t.Errorf("Redeemer mismatch: got %s, want %s", got.Redeemer, r.Redeemer)
	}
}

func TestRedemptionStore_Update(t *testing.T) {
	store := NewRedemptionStore()
	ctx := context.Background()

	r := &models.VoucherRedemption{
		ID:         uuid.New(),
		Digest:     "aabbcc",
		Creator:    "CreatorCreatorCreatorCreatorCrea",
		Contract:   "nft",
		TokenID:    1,
		Redeemer:   "RedeemerRedeemerRedeemerRedeemer",
		Paid:       20_000_000_000,
		RedeemedAt: time.Now().UTC(),
	}

	if err := store.Update(ctx, r); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown digest, got %v", err)
	}

	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	r.Minted = true
	r.ProceedsPaid = true
	if err := store.Update(ctx, r); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByDigest(ctx, "aabbcc")
	if err != nil {
		t.Fatalf("GetByDigest failed: %v", err)
	}
	if !got.Minted || !got.ProceedsPaid || got.FeePaid {
		t.Errorf("checkpoints mismatch: minted=%v proceeds=%v fee=%v",
			got.Minted, got.ProceedsPaid, got.FeePaid)
	}
}
