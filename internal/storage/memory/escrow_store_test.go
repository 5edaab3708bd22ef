package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

const (
	testAsset  = "nft:1"
	testBidder = models.Address("BidderBidderBidderBidderBidderBi")
)

func TestEscrowStore_UpsertTopsUp(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	e := &models.EscrowEntry{
		AssetKey: testAsset,
		Bidder:   testBidder,
		Amount:   20_000_000_000,
		Seq:      1,
		LockedAt: time.Now().UTC(),
	}
	if err := store.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// A raise replaces the same (asset, bidder) entry.
	e.Amount = 30_000_000_000
	e.Seq = 3
	if err := store.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, testAsset, testBidder)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Amount != 30_000_000_000 || got.Seq != 3 {
		t.Errorf("entry not replaced: amount=%d seq=%d", got.Amount, got.Seq)
	}

	all, err := store.ListByAsset(ctx, testAsset)
	if err != nil {
		t.Fatalf("ListByAsset failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single entry per (asset, bidder), got %d", len(all))
	}
}

func TestEscrowStore_GetBySeq(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	other := models.Address("OtherOtherOtherOtherOtherOtherOt")
	entries := []*models.EscrowEntry{
		{AssetKey: testAsset, Bidder: testBidder, Amount: 20, Seq: 1, LockedAt: time.Now()},
		{AssetKey: testAsset, Bidder: other, Amount: 25, Seq: 2, LockedAt: time.Now()},
	}
	for _, e := range entries {
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.GetBySeq(ctx, testAsset, 2)
	if err != nil {
		t.Fatalf("GetBySeq failed: %v", err)
	}
	if got.Bidder != other {
		t.Errorf("GetBySeq bidder = %s, want %s", got.Bidder, other)
	}

	if _, err := store.GetBySeq(ctx, testAsset, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEscrowStore_Delete(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	e := &models.EscrowEntry{AssetKey: testAsset, Bidder: testBidder, Amount: 20, Seq: 1, LockedAt: time.Now()}
	if err := store.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, testAsset, testBidder); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, testAsset, testBidder); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, testAsset, testBidder); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestEscrowStore_ListLockedBefore(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()
	now := time.Now().UTC()

	old := &models.EscrowEntry{AssetKey: testAsset, Bidder: testBidder, Amount: 20, Seq: 1, LockedAt: now.Add(-time.Hour)}
	fresh := &models.EscrowEntry{AssetKey: "nft:2", Bidder: testBidder, Amount: 25, Seq: 1, LockedAt: now.Add(time.Hour)}
	for _, e := range []*models.EscrowEntry{old, fresh} {
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.ListLockedBefore(ctx, now)
	if err != nil {
		t.Fatalf("ListLockedBefore failed: %v", err)
	}
	if len(got) != 1 || got[0].AssetKey != testAsset {
		t.Errorf("expected only the old entry, got %d entries", len(got))
	}
}
