package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

type AuctionStore struct {
	pool *Pool
}

func NewAuctionStore(pool *Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

var _ storage.AuctionStore = (*AuctionStore)(nil)

const auctionColumns = `
	id, contract, token_id, quantity, seller, pay_token, reserve_price,
	start_time, end_time, highest_bid, highest_bidder, bid_count, status,
	winner, winning_bid, platform_fee, seller_proceeds, proceeds_paid, fee_paid,
	created_at, updated_at`

// Insert stores a new auction. The partial unique index on
// (contract, token_id) for unsettled statuses enforces one open auction
// per asset.
func (s *AuctionStore) Insert(ctx context.Context, a *models.Auction) error {
	if a == nil || a.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO auctions (
			id, contract, token_id, quantity, seller, pay_token, reserve_price,
			start_time, end_time, highest_bid, highest_bidder, bid_count, status,
			winner, winning_bid, platform_fee, seller_proceeds, proceeds_paid, fee_paid,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, a.ID, a.Contract, int64(a.TokenID), a.Quantity, a.Seller, a.PayToken, a.ReservePrice,
		a.StartTime, a.EndTime, a.HighestBid, a.HighestBidder, a.BidCount, a.Status,
		a.Winner, a.WinningBid, a.PlatformFee, a.SellerProceeds, a.ProceedsPaid, a.FeePaid,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert auction: %w", err)
	}
	return nil
}

func (s *AuctionStore) GetByAsset(ctx context.Context, assetKey string) (*models.Auction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE contract || ':' || token_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, assetKey)

	a, err := scanAuction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get auction by asset: %w", err)
	}
	return a, nil
}

func (s *AuctionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions WHERE id = $1
	`, id)

	a, err := scanAuction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get auction by id: %w", err)
	}
	return a, nil
}

func (s *AuctionStore) Update(ctx context.Context, a *models.Auction) error {
	if a == nil || a.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE auctions SET
			highest_bid = $1, highest_bidder = $2, bid_count = $3, status = $4,
			winner = $5, winning_bid = $6, platform_fee = $7, seller_proceeds = $8,
			proceeds_paid = $9, fee_paid = $10, updated_at = $11
		WHERE id = $12
	`, a.HighestBid, a.HighestBidder, a.BidCount, a.Status,
		a.Winner, a.WinningBid, a.PlatformFee, a.SellerProceeds,
		a.ProceedsPaid, a.FeePaid, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *AuctionStore) ListEndedUnresolved(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status = $1 AND end_time <= $2
		ORDER BY end_time ASC
	`, models.AuctionStatusCreated, now)
	if err != nil {
		return nil, fmt.Errorf("list ended unresolved: %w", err)
	}
	defer rows.Close()

	return scanAuctions(rows)
}

func (s *AuctionStore) List(ctx context.Context, status string, limit int) ([]*models.Auction, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+auctionColumns+`
			FROM auctions ORDER BY created_at DESC LIMIT $1
		`, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+auctionColumns+`
			FROM auctions WHERE status = $1 ORDER BY created_at DESC LIMIT $2
		`, status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	return scanAuctions(rows)
}

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var (
		a       models.Auction
		tokenID int64
	)
	err := row.Scan(
		&a.ID, &a.Contract, &tokenID, &a.Quantity, &a.Seller, &a.PayToken, &a.ReservePrice,
		&a.StartTime, &a.EndTime, &a.HighestBid, &a.HighestBidder, &a.BidCount, &a.Status,
		&a.Winner, &a.WinningBid, &a.PlatformFee, &a.SellerProceeds, &a.ProceedsPaid, &a.FeePaid,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.TokenID = uint64(tokenID)
	return &a, nil
}

func scanAuctions(rows pgx.Rows) ([]*models.Auction, error) {
	var auctions []*models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction row: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auction rows: %w", err)
	}
	return auctions, nil
}
