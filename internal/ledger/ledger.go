// Package ledger abstracts value movement: custodial fungible-token and
// native balances on the payment side, and collection assets on the item
// side. The engine never touches balances directly; it goes through these
// interfaces so the backing store (in-memory or postgres) is swappable.
package ledger

import (
	"context"

	"github.com/nft-auction/backend/internal/models"
)

// FungibleLedger holds per-token account balances and spender allowances.
type FungibleLedger interface {
	BalanceOf(ctx context.Context, token, account models.Address) (int64, error)
	Allowance(ctx context.Context, token, owner, spender models.Address) (int64, error)
	Approve(ctx context.Context, token, owner, spender models.Address, amount int64) error

	// TransferFrom moves owner funds using spender's allowance.
	TransferFrom(ctx context.Context, token, spender, from, to models.Address, amount int64) error
	Transfer(ctx context.Context, token, from, to models.Address, amount int64) error

	// Credit mints balance to an account (deposit indexer, tests).
	Credit(ctx context.Context, token, account models.Address, amount int64) error
}

// NativeLedger holds native-currency balances credited by the deposit
// indexer and debited when a native bid attaches value.
type NativeLedger interface {
	BalanceOf(ctx context.Context, account models.Address) (int64, error)
	Credit(ctx context.Context, account models.Address, amount int64) error
	Transfer(ctx context.Context, from, to models.Address, amount int64) error
}

// AssetLedger tracks ownership of collection items. Unique assets have a
// single owner; multi assets have per-owner quantity balances.
type AssetLedger interface {
	OwnerOf(ctx context.Context, contract models.Address, tokenID uint64) (models.Address, error)
	BalanceOf(ctx context.Context, contract models.Address, tokenID uint64, owner models.Address) (int64, error)

	IsApprovedForAll(ctx context.Context, contract, owner, operator models.Address) (bool, error)
	SetApprovalForAll(ctx context.Context, contract, owner, operator models.Address, approved bool) error

	TransferFrom(ctx context.Context, asset models.AssetRef, from, to models.Address) error

	// Mint creates the asset directly in to's ownership (voucher redemption).
	Mint(ctx context.Context, asset models.AssetRef, to models.Address, uri string) error

	// URI returns the metadata URI recorded at mint time, or "".
	URI(ctx context.Context, contract models.Address, tokenID uint64) (string, error)
}

// TokenRegistry is the allow-list of fungible pay tokens.
type TokenRegistry interface {
	IsRegistered(ctx context.Context, token models.Address) (bool, error)
	Add(ctx context.Context, token models.Address) error
}
