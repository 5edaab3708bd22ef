// Package storage defines the persistence interfaces for auction state.
// Two backends implement them: memory (tests, local development) and
// postgres (production).
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nft-auction/backend/internal/models"
)

// AuctionStore persists auctions. An asset has at most one unsettled
// auction (status created or resulted) at a time.
type AuctionStore interface {
	// Insert stores a new auction. Returns ErrDuplicateKey if the asset
	// already has an unsettled auction.
	Insert(ctx context.Context, a *models.Auction) error

	// GetByAsset returns the most recent auction for the asset key.
	GetByAsset(ctx context.Context, assetKey string) (*models.Auction, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)

	Update(ctx context.Context, a *models.Auction) error

	// ListEndedUnresolved returns created auctions whose end time has
	// passed, oldest first. The worker announces these.
	ListEndedUnresolved(ctx context.Context, now time.Time) ([]*models.Auction, error)

	// List returns auctions filtered by status ("" for all), newest first.
	List(ctx context.Context, status string, limit int) ([]*models.Auction, error)
}

// EscrowStore persists locked bid amounts, keyed by (asset key, bidder).
type EscrowStore interface {
	// Upsert inserts or replaces the bidder's entry for the asset.
	Upsert(ctx context.Context, e *models.EscrowEntry) error

	Get(ctx context.Context, assetKey string, bidder models.Address) (*models.EscrowEntry, error)

	// GetBySeq resolves an entry by the bid sequence it was updated at.
	GetBySeq(ctx context.Context, assetKey string, seq int64) (*models.EscrowEntry, error)

	// Delete removes the bidder's entry. Returns ErrNotFound if absent.
	Delete(ctx context.Context, assetKey string, bidder models.Address) error

	ListByAsset(ctx context.Context, assetKey string) ([]*models.EscrowEntry, error)

	// ListLockedBefore returns entries locked at or before the cutoff,
	// oldest first. The worker uses it for unlock notifications.
	ListLockedBefore(ctx context.Context, cutoff time.Time) ([]*models.EscrowEntry, error)
}

// RedemptionStore is the redemption record that makes voucher redemption
// single-use: one record per voucher digest.
type RedemptionStore interface {
	// Insert records a redemption. Returns ErrDuplicateKey if the digest
	// was already redeemed.
	Insert(ctx context.Context, r *models.VoucherRedemption) error

	GetByDigest(ctx context.Context, digest string) (*models.VoucherRedemption, error)

	// Update persists the settlement checkpoints of an existing record.
	// Returns ErrNotFound if the digest is unknown.
	Update(ctx context.Context, r *models.VoucherRedemption) error
}

// AuditStore is the append-only operation log.
type AuditStore interface {
	Log(ctx context.Context, entry *models.AuditLog) error

	// GetByEntity returns entries for one entity, newest first.
	GetByEntity(ctx context.Context, entityType, entityKey string, limit int) ([]*models.AuditLog, error)
}
