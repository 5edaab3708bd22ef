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

type EscrowStore struct {
	pool *Pool
}

func NewEscrowStore(pool *Pool) *EscrowStore {
	return &EscrowStore{pool: pool}
}

var _ storage.EscrowStore = (*EscrowStore)(nil)

func (s *EscrowStore) Upsert(ctx context.Context, e *models.EscrowEntry) error {
	if e == nil || e.AssetKey == "" || e.Bidder == "" {
		return storage.ErrInvalidInput
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO escrow_entries (id, asset_key, bidder, amount, seq, locked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (asset_key, bidder) DO UPDATE
		SET amount = EXCLUDED.amount, seq = EXCLUDED.seq, locked_at = EXCLUDED.locked_at
	`, e.ID, e.AssetKey, e.Bidder, e.Amount, e.Seq, e.LockedAt)
	if err != nil {
		return fmt.Errorf("upsert escrow entry: %w", err)
	}
	return nil
}

func (s *EscrowStore) Get(ctx context.Context, assetKey string, bidder models.Address) (*models.EscrowEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, asset_key, bidder, amount, seq, locked_at
		FROM escrow_entries WHERE asset_key = $1 AND bidder = $2
	`, assetKey, bidder)

	e, err := scanEscrowEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get escrow entry: %w", err)
	}
	return e, nil
}

func (s *EscrowStore) GetBySeq(ctx context.Context, assetKey string, seq int64) (*models.EscrowEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, asset_key, bidder, amount, seq, locked_at
		FROM escrow_entries WHERE asset_key = $1 AND seq = $2
	`, assetKey, seq)

	e, err := scanEscrowEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get escrow entry by seq: %w", err)
	}
	return e, nil
}

func (s *EscrowStore) Delete(ctx context.Context, assetKey string, bidder models.Address) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM escrow_entries WHERE asset_key = $1 AND bidder = $2
	`, assetKey, bidder)
	if err != nil {
		return fmt.Errorf("delete escrow entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *EscrowStore) ListByAsset(ctx context.Context, assetKey string) ([]*models.EscrowEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, asset_key, bidder, amount, seq, locked_at
		FROM escrow_entries WHERE asset_key = $1 ORDER BY seq ASC
	`, assetKey)
	if err != nil {
		return nil, fmt.Errorf("list escrow entries: %w", err)
	}
	defer rows.Close()

	return scanEscrowEntries(rows)
}

func (s *EscrowStore) ListLockedBefore(ctx context.Context, cutoff time.Time) ([]*models.EscrowEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, asset_key, bidder, amount, seq, locked_at
		FROM escrow_entries WHERE locked_at <= $1 ORDER BY locked_at ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list escrow entries by lock time: %w", err)
	}
	defer rows.Close()

	return scanEscrowEntries(rows)
}

func scanEscrowEntry(row pgx.Row) (*models.EscrowEntry, error) {
	var e models.EscrowEntry
	err := row.Scan(&e.ID, &e.AssetKey, &e.Bidder, &e.Amount, &e.Seq, &e.LockedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEscrowEntries(rows pgx.Rows) ([]*models.EscrowEntry, error) {
	var entries []*models.EscrowEntry
	for rows.Next() {
		e, err := scanEscrowEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow rows: %w", err)
	}
	return entries, nil
}
