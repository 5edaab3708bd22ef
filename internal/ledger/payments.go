package ledger

import (
	"context"
	"fmt"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/models"
)

// Payments routes value through the engine vault account. Locking pulls the
// amount from the payer into the vault; releasing pushes it back out. The
// same code path serves escrowed bids and voucher payments, so native and
// fungible tokens behave identically above this layer.
type Payments struct {
	fungible FungibleLedger
	native   NativeLedger
	registry TokenRegistry
	vault    models.Address
}

func NewPayments(fungible FungibleLedger, native NativeLedger, registry TokenRegistry, vault models.Address) *Payments {
	return &Payments{fungible: fungible, native: native, registry: registry, vault: vault}
}

func (p *Payments) Vault() models.Address { return p.vault }

// Registered reports whether a fungible token is on the allow-list.
func (p *Payments) Registered(ctx context.Context, token models.Address) (bool, error) {
	return p.registry.IsRegistered(ctx, token)
}

// Lock moves amount from `from` into the vault. For the native token the
// caller must attach exactly the amount; for fungible tokens no value may be
// attached and the vault spends the payer's allowance.
func (p *Payments) Lock(ctx context.Context, token, from models.Address, amount, attachedValue int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", engine.ErrValidation)
	}

	if token.IsNative() {
		if attachedValue != amount {
			return engine.ErrValueMismatch
		}
		balance, err := p.native.BalanceOf(ctx, from)
		if err != nil {
			return fmt.Errorf("native balance lookup: %w", err)
		}
		if balance < amount {
			return engine.ErrInsufficientFunds
		}
		if err := p.native.Transfer(ctx, from, p.vault, amount); err != nil {
			return fmt.Errorf("%w: %v", engine.ErrTransferFailed, err)
		}
		return nil
	}

	if attachedValue != 0 {
		return engine.ErrValueMismatch
	}
	registered, err := p.registry.IsRegistered(ctx, token)
	if err != nil {
		return fmt.Errorf("token registry lookup: %w", err)
	}
	if !registered {
		return engine.ErrUnregisteredToken
	}
	allowance, err := p.fungible.Allowance(ctx, token, from, p.vault)
	if err != nil {
		return fmt.Errorf("allowance lookup: %w", err)
	}
	if allowance < amount {
		return engine.ErrInsufficientAllowance
	}
	balance, err := p.fungible.BalanceOf(ctx, token, from)
	if err != nil {
		return fmt.Errorf("balance lookup: %w", err)
	}
	if balance < amount {
		return engine.ErrInsufficientFunds
	}
	if err := p.fungible.TransferFrom(ctx, token, p.vault, from, p.vault, amount); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrTransferFailed, err)
	}
	return nil
}

// Release pays amount out of the vault to `to`.
func (p *Payments) Release(ctx context.Context, token, to models.Address, amount int64) error {
	if amount == 0 {
		return nil
	}
	if token.IsNative() {
		if err := p.native.Transfer(ctx, p.vault, to, amount); err != nil {
			return fmt.Errorf("%w: %v", engine.ErrTransferFailed, err)
		}
		return nil
	}
	if err := p.fungible.Transfer(ctx, token, p.vault, to, amount); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrTransferFailed, err)
	}
	return nil
}
