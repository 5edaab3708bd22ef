package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
)

type AssetLedger struct {
	mu        sync.RWMutex
	holdings  map[string]map[models.Address]int64 // contract:tokenID -> owner -> quantity
	uris      map[string]string
	approvals map[string]bool // contract|owner|operator
}

var _ ledger.AssetLedger = (*AssetLedger)(nil)

func NewAssetLedger() *AssetLedger {
	return &AssetLedger{
		holdings:  make(map[string]map[models.Address]int64),
		uris:      make(map[string]string),
		approvals: make(map[string]bool),
	}
}

func approvalKey(contract, owner, operator models.Address) string {
	return string(contract) + "|" + string(owner) + "|" + string(operator)
}

// OwnerOf resolves the single holder of a unique asset. Multi assets with
// more than one holder have no single owner.
func (l *AssetLedger) OwnerOf(_ context.Context, contract models.Address, tokenID uint64) (models.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	var owner models.Address
	for holder, qty := range l.holdings[key] {
		if qty <= 0 {
			continue
		}
		if owner != "" {
			return "", fmt.Errorf("asset %s has multiple holders", key)
		}
		owner = holder
	}
	if owner == "" {
		return "", fmt.Errorf("asset %s does not exist", key)
	}
	return owner, nil
}

func (l *AssetLedger) BalanceOf(_ context.Context, contract models.Address, tokenID uint64, owner models.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := models.AssetRef{Contract: contract, TokenID: tokenID}.Key()
	return l.holdings[key][owner], nil
}

func (l *AssetLedger) IsApprovedForAll(_ context.Context, contract, owner, operator models.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.approvals[approvalKey(contract, owner, operator)], nil
}

func (l *AssetLedger) SetApprovalForAll(_ context.Context, contract, owner, operator models.Address, approved bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.approvals[approvalKey(contract, owner, operator)] = approved
	return nil
}

func (l *AssetLedger) TransferFrom(_ context.Context, asset models.AssetRef, from, to models.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := asset.Key()
	if l.holdings[key][from] < asset.Quantity {
		return fmt.Errorf("%w: %s holds %d of %s, need %d",
			engine.ErrTransferFailed, from, l.holdings[key][from], key, asset.Quantity)
	}
	l.holdings[key][from] -= asset.Quantity
	l.holdings[key][to] += asset.Quantity
	return nil
}

func (l *AssetLedger) Mint(_ context.Context, asset models.AssetRef, to models.Address, uri string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := asset.Key()
	if l.holdings[key] == nil {
		l.holdings[key] = make(map[models.Address]int64)
	}
	l.holdings[key][to] += asset.Quantity
	if uri != "" {
		l.uris[key] = uri
	}
	return nil
}

// URI returns the metadata URI recorded at mint time, or "".
func (l *AssetLedger) URI(_ context.Context, contract models.Address, tokenID uint64) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.uris[models.AssetRef{Contract: contract, TokenID: tokenID}.Key()], nil
}
