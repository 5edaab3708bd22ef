// Package postgres implements the ledger interfaces on PostgreSQL. Balances
// are custodial rows; transfers run in a transaction with a conditional
// debit so a balance can never go negative.
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

type FungibleLedger struct {
	pool *postgres.Pool
}

var _ ledger.FungibleLedger = (*FungibleLedger)(nil)

func NewFungibleLedger(pool *postgres.Pool) *FungibleLedger {
	return &FungibleLedger{pool: pool}
}

func (l *FungibleLedger) BalanceOf(ctx context.Context, token, account models.Address) (int64, error) {
	var amount int64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT amount FROM token_balances WHERE token = $1 AND account = $2), 0)
	`, token, account).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("token balance: %w", err)
	}
	return amount, nil
}

func (l *FungibleLedger) Allowance(ctx context.Context, token, owner, spender models.Address) (int64, error) {
	var amount int64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT amount FROM token_allowances WHERE token = $1 AND owner_account = $2 AND spender = $3), 0)
	`, token, owner, spender).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("token allowance: %w", err)
	}
	return amount, nil
}

func (l *FungibleLedger) Approve(ctx context.Context, token, owner, spender models.Address, amount int64) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO token_allowances (token, owner_account, spender, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token, owner_account, spender) DO UPDATE SET amount = EXCLUDED.amount
	`, token, owner, spender, amount)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

func (l *FungibleLedger) TransferFrom(ctx context.Context, token, spender, from, to models.Address, amount int64) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE token_allowances SET amount = amount - $4
			WHERE token = $1 AND owner_account = $2 AND spender = $3 AND amount >= $4
		`, token, from, spender, amount)
		if err != nil {
			return fmt.Errorf("debit allowance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return engine.ErrInsufficientAllowance
		}
		return moveTokens(ctx, tx, token, from, to, amount)
	})
}

func (l *FungibleLedger) Transfer(ctx context.Context, token, from, to models.Address, amount int64) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		return moveTokens(ctx, tx, token, from, to, amount)
	})
}

func (l *FungibleLedger) Credit(ctx context.Context, token, account models.Address, amount int64) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO token_balances (token, account, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (token, account) DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
	`, token, account, amount)
	if err != nil {
		return fmt.Errorf("credit token balance: %w", err)
	}
	return nil
}

func moveTokens(ctx context.Context, tx pgx.Tx, token, from, to models.Address, amount int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE token_balances SET amount = amount - $3
		WHERE token = $1 AND account = $2 AND amount >= $3
	`, token, from, amount)
	if err != nil {
		return fmt.Errorf("debit token balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrInsufficientFunds
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO token_balances (token, account, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (token, account) DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
	`, token, to, amount)
	if err != nil {
		return fmt.Errorf("credit token balance: %w", err)
	}
	return nil
}
