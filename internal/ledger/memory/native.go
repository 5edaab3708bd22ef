package memory

import (
	"context"
	"sync"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
)

type NativeLedger struct {
	mu       sync.RWMutex
	balances map[models.Address]int64
}

var _ ledger.NativeLedger = (*NativeLedger)(nil)

func NewNativeLedger() *NativeLedger {
	return &NativeLedger{balances: make(map[models.Address]int64)}
}

func (l *NativeLedger) BalanceOf(_ context.Context, account models.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

func (l *NativeLedger) Credit(_ context.Context, account models.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

func (l *NativeLedger) Transfer(_ context.Context, from, to models.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return engine.ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
