package services

import (
	"sync"
	"time"

	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/models"
)

// FeeConfig is the process-wide settlement configuration. Auction and
// voucher settlement both read it; an operator can update it at runtime.
type FeeConfig struct {
	mu             sync.RWMutex
	feeBPS         int
	recipient      models.Address
	withdrawalLock time.Duration
}

func NewFeeConfig(cfg *config.Config) *FeeConfig {
	return &FeeConfig{
		feeBPS:         cfg.PlatformFeeBPS,
		recipient:      cfg.FeeRecipient,
		withdrawalLock: cfg.WithdrawalLock(),
	}
}

// Snapshot returns the fee rate and recipient as one consistent read.
func (f *FeeConfig) Snapshot() (int, models.Address) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.feeBPS, f.recipient
}

func (f *FeeConfig) FeeBPS() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.feeBPS
}

func (f *FeeConfig) WithdrawalLock() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.withdrawalLock
}

// SetFee updates the rate; an empty recipient keeps the current one.
func (f *FeeConfig) SetFee(bps int, recipient models.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeBPS = bps
	if recipient != "" {
		f.recipient = recipient
	}
}

func (f *FeeConfig) SetWithdrawalLock(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawalLock = d
}
