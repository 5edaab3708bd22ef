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

type NativeLedger struct {
	pool *postgres.Pool
}

var _ ledger.NativeLedger = (*NativeLedger)(nil)

func NewNativeLedger(pool *postgres.Pool) *NativeLedger {
	return &NativeLedger{pool: pool}
}

func (l *NativeLedger) BalanceOf(ctx context.Context, account models.Address) (int64, error) {
	var amount int64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT amount FROM native_balances WHERE account = $1), 0)
	`, account).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("native balance: %w", err)
	}
	return amount, nil
}

func (l *NativeLedger) Credit(ctx context.Context, account models.Address, amount int64) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO native_balances (account, amount)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET amount = native_balances.amount + EXCLUDED.amount
	`, account, amount)
	if err != nil {
		return fmt.Errorf("credit native balance: %w", err)
	}
	return nil
}

func (l *NativeLedger) Transfer(ctx context.Context, from, to models.Address, amount int64) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE native_balances SET amount = amount - $2
			WHERE account = $1 AND amount >= $2
		`, from, amount)
		if err != nil {
			return fmt.Errorf("debit native balance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return engine.ErrInsufficientFunds
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO native_balances (account, amount)
			VALUES ($1, $2)
			ON CONFLICT (account) DO UPDATE SET amount = native_balances.amount + EXCLUDED.amount
		`, to, amount)
		if err != nil {
			return fmt.Errorf("credit native balance: %w", err)
		}
		return nil
	})
}
