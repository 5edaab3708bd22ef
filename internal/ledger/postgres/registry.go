package postgres

import (
	"context"
	"fmt"

	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage/postgres"
)

type TokenRegistry struct {
	pool *postgres.Pool
}

var _ ledger.TokenRegistry = (*TokenRegistry)(nil)

func NewTokenRegistry(pool *postgres.Pool) *TokenRegistry {
	return &TokenRegistry{pool: pool}
}

func (r *TokenRegistry) IsRegistered(ctx context.Context, token models.Address) (bool, error) {
	var registered bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM registered_tokens WHERE token = $1)
	`, token).Scan(&registered)
	if err != nil {
		return false, fmt.Errorf("registry lookup: %w", err)
	}
	return registered, nil
}

func (r *TokenRegistry) Add(ctx context.Context, token models.Address) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO registered_tokens (token) VALUES ($1) ON CONFLICT DO NOTHING
	`, token)
	if err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}
