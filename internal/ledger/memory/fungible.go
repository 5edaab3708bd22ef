// Package memory provides in-memory ledger implementations. They back tests
// and local development; production deployments use the postgres variants.
package memory

import (
	"context"
	"sync"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
)

type FungibleLedger struct {
	mu         sync.RWMutex
	balances   map[models.Address]map[models.Address]int64 // token -> account -> amount
	allowances map[string]int64                            // token|owner|spender -> amount
}

var _ ledger.FungibleLedger = (*FungibleLedger)(nil)

func NewFungibleLedger() *FungibleLedger {
	return &FungibleLedger{
		balances:   make(map[models.Address]map[models.Address]int64),
		allowances: make(map[string]int64),
	}
}

func allowanceKey(token, owner, spender models.Address) string {
	return string(token) + "|" + string(owner) + "|" + string(spender)
}

func (l *FungibleLedger) BalanceOf(_ context.Context, token, account models.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[token][account], nil
}

func (l *FungibleLedger) Allowance(_ context.Context, token, owner, spender models.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey(token, owner, spender)], nil
}

func (l *FungibleLedger) Approve(_ context.Context, token, owner, spender models.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey(token, owner, spender)] = amount
	return nil
}

func (l *FungibleLedger) TransferFrom(_ context.Context, token, spender, from, to models.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey(token, from, spender)
	if l.allowances[key] < amount {
		return engine.ErrInsufficientAllowance
	}
	if err := l.move(token, from, to, amount); err != nil {
		return err
	}
	l.allowances[key] -= amount
	return nil
}

func (l *FungibleLedger) Transfer(_ context.Context, token, from, to models.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(token, from, to, amount)
}

func (l *FungibleLedger) Credit(_ context.Context, token, account models.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[token] == nil {
		l.balances[token] = make(map[models.Address]int64)
	}
	l.balances[token][account] += amount
	return nil
}

// move assumes the lock is held.
func (l *FungibleLedger) move(token, from, to models.Address, amount int64) error {
	if l.balances[token][from] < amount {
		return engine.ErrInsufficientFunds
	}
	if l.balances[token] == nil {
		l.balances[token] = make(map[models.Address]int64)
	}
	l.balances[token][from] -= amount
	l.balances[token][to] += amount
	return nil
}
