package memory

import (
	"context"
	"sync"

	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
)

type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[models.Address]struct{}
}

var _ ledger.TokenRegistry = (*TokenRegistry)(nil)

func NewTokenRegistry(tokens ...models.Address) *TokenRegistry {
	r := &TokenRegistry{tokens: make(map[models.Address]struct{})}
	for _, t := range tokens {
		r.tokens[t] = struct{}{}
	}
	return r
}

func (r *TokenRegistry) IsRegistered(_ context.Context, token models.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[token]
	return ok, nil
}

func (r *TokenRegistry) Add(_ context.Context, token models.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = struct{}{}
	return nil
}
