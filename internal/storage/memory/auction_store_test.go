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

func newAuction(contract models.Address, tokenID uint64, status string, end time.Time) *models.Auction {
	now := time.Now().UTC()
	return &models.Auction{
		ID:           uuid.New(),
		Contract:     contract,
		TokenID:      tokenID,
		Quantity:     1,
		Seller:       "SellerSellerSellerSellerSellerSe",
		ReservePrice: 20_000_000_000,
		StartTime:    end.Add(-time.Hour),
		EndTime:      end,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAuctionStore_InsertAndGet(t *testing.T) {
	store := NewAuctionStore()
	ctx := context.Background()

	a := newAuction("nft", 1, models.AuctionStatusCreated, time.Now().Add(time.Hour))
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByAsset(ctx, a.AssetKey())
	if err != nil {
		t.Fatalf("GetByAsset failed: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, a.ID)
	}

	got, err = store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AssetKey() != a.AssetKey() {
		t.Errorf("asset key mismatch: got %s, want %s", got.AssetKey(), a.AssetKey())
	}
}

func TestAuctionStore_OneUnsettledPerAsset(t *testing.T) {
	store := NewAuctionStore()
	ctx := context.Background()
	end := time.Now().Add(time.Hour)

	first := newAuction("nft", 1, models.AuctionStatusCreated, end)
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Second auction on the same asset is rejected while the first is open.
	dup := newAuction("nft", 1, models.AuctionStatusCreated, end)
	if err := store.Insert(ctx, dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Still rejected after resulting: escrow is unsettled until paid.
	first.Status = models.AuctionStatusResulted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Insert(ctx, dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey after result, got %v", err)
	}

	// A paid auction frees the asset for a new one.
	first.Status = models.AuctionStatusPaid
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	dup.CreatedAt = first.CreatedAt.Add(time.Second)
	if err := store.Insert(ctx, dup); err != nil {
		t.Fatalf("Insert after settlement failed: %v", err)
	}

	got, err := store.GetByAsset(ctx, first.AssetKey())
	if err != nil {
		t.Fatalf("GetByAsset failed: %v", err)
	}
	if got.ID != dup.ID {
		t.Errorf("GetByAsset should return the newest auction, got %s", got.ID)
	}
}

func TestAuctionStore_ListEndedUnresolved(t *testing.T) {
	store := NewAuctionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	ended := newAuction("nft", 1, models.AuctionStatusCreated, now.Add(-time.Minute))
	running := newAuction("nft", 2, models.AuctionStatusCreated, now.Add(time.Hour))
	settled := newAuction("nft", 3, models.AuctionStatusPaid, now.Add(-time.Hour))

	for _, a := range []*models.Auction{ended, running, settled} {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.ListEndedUnresolved(ctx, now)
	if err != nil {
		t.Fatalf("ListEndedUnresolved failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != ended.ID {
		t.Errorf("expected only the ended unresolved auction, got %d entries", len(got))
	}
}

func TestAuctionStore_UpdateMissing(t *testing.T) {
	store := NewAuctionStore()
	a := newAuction("nft", 1, models.AuctionStatusCreated, time.Now())
	if err := store.Update(context.Background(), a); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
