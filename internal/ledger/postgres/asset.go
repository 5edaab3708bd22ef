package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage/postgres"
)

type AssetLedger struct {
	pool *postgres.Pool
}

var _ ledger.AssetLedger = (*AssetLedger)(nil)

func NewAssetLedger(pool *postgres.Pool) *AssetLedger {
	return &AssetLedger{pool: pool}
}

func (l *AssetLedger) OwnerOf(ctx context.Context, contract models.Address, tokenID uint64) (models.Address, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT owner_account FROM asset_holdings
		WHERE contract = $1 AND token_id = $2 AND quantity > 0
	`, contract, int64(tokenID))
	if err != nil {
		return "", fmt.Errorf("asset owner: %w", err)
	}
	defer rows.Close()

	var owner models.Address
	for rows.Next() {
		var holder models.Address
		if err := rows.Scan(&holder); err != nil {
			return "", fmt.Errorf("scan asset holder: %w", err)
		}
		if owner != "" {
			return "", fmt.Errorf("asset %s:%d has multiple holders", contract, tokenID)
		}
		owner = holder
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate asset holders: %w", err)
	}
	if owner == "" {
		return "", fmt.Errorf("asset %s:%d does not exist", contract, tokenID)
	}
	return owner, nil
}

func (l *AssetLedger) BalanceOf(ctx context.Context, contract models.Address, tokenID uint64, owner models.Address) (int64, error) {
	var quantity int64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT quantity FROM asset_holdings WHERE contract = $1 AND token_id = $2 AND owner_account = $3), 0)
	`, contract, int64(tokenID), owner).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("asset balance: %w", err)
	}
	return quantity, nil
}

func (l *AssetLedger) IsApprovedForAll(ctx context.Context, contract, owner, operator models.Address) (bool, error) {
	var approved bool
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT approved FROM asset_approvals WHERE contract = $1 AND owner_account = $2 AND operator = $3), false)
	`, contract, owner, operator).Scan(&approved)
	if err != nil {
		return false, fmt.Errorf("asset approval: %w", err)
	}
	return approved, nil
}

func (l *AssetLedger) SetApprovalForAll(ctx context.Context, contract, owner, operator models.Address, approved bool) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO asset_approvals (contract, owner_account, operator, approved)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contract, owner_account, operator) DO UPDATE SET approved = EXCLUDED.approved
	`, contract, owner, operator, approved)
	if err != nil {
		return fmt.Errorf("set asset approval: %w", err)
	}
	return nil
}

func (l *AssetLedger) TransferFrom(ctx context.Context, asset models.AssetRef, from, to models.Address) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE asset_holdings SET quantity = quantity - $4
			WHERE contract = $1 AND token_id = $2 AND owner_account = $3 AND quantity >= $4
		`, asset.Contract, int64(asset.TokenID), from, asset.Quantity)
		if err != nil {
			return fmt.Errorf("debit asset holding: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s holds less than %d of %s",
				engine.ErrTransferFailed, from, asset.Quantity, asset.Key())
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO asset_holdings (contract, token_id, owner_account, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (contract, token_id, owner_account)
			DO UPDATE SET quantity = asset_holdings.quantity + EXCLUDED.quantity
		`, asset.Contract, int64(asset.TokenID), to, asset.Quantity)
		if err != nil {
			return fmt.Errorf("credit asset holding: %w", err)
		}
		return nil
	})
}

func (l *AssetLedger) Mint(ctx context.Context, asset models.AssetRef, to models.Address, uri string) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO asset_holdings (contract, token_id, owner_account, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (contract, token_id, owner_account)
			DO UPDATE SET quantity = asset_holdings.quantity + EXCLUDED.quantity
		`, asset.Contract, int64(asset.TokenID), to, asset.Quantity)
		if err != nil {
			return fmt.Errorf("mint asset: %w", err)
		}
		if uri != "" {
			_, err = tx.Exec(ctx, `
				INSERT INTO asset_metadata (contract, token_id, uri)
				VALUES ($1, $2, $3)
				ON CONFLICT (contract, token_id) DO UPDATE SET uri = EXCLUDED.uri
			`, asset.Contract, int64(asset.TokenID), uri)
			if err != nil {
				return fmt.Errorf("store asset uri: %w", err)
			}
		}
		return nil
	})
}

// URI returns the metadata URI recorded at mint time, or "".
func (l *AssetLedger) URI(ctx context.Context, contract models.Address, tokenID uint64) (string, error) {
	var uri string
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT uri FROM asset_metadata WHERE contract = $1 AND token_id = $2), '')
	`, contract, int64(tokenID)).Scan(&uri)
	if err != nil {
		return "", fmt.Errorf("asset uri: %w", err)
	}
	return uri, nil
}
