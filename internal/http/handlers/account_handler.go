package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/middleware"
	"github.com/nft-auction/backend/internal/models"
)

// AccountHandler exposes the caller's custodial balances, allowances and
// asset approvals.
type AccountHandler struct {
	fungible ledger.FungibleLedger
	native   ledger.NativeLedger
	assets   ledger.AssetLedger
	vault    models.Address
	log      *zap.Logger
}

func NewAccountHandler(fungible ledger.FungibleLedger, native ledger.NativeLedger, assets ledger.AssetLedger, vault models.Address, log *zap.Logger) *AccountHandler {
	return &AccountHandler{fungible: fungible, native: native, assets: assets, vault: vault, log: log}
}

// GetBalance returns the caller's balance for ?token= (native when empty).
func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	addr := middleware.GetAddress(c)
	token := models.Address(c.Query("token"))

	var (
		amount int64
		err    error
	)
	if token.IsNative() {
		amount, err = h.native.BalanceOf(c.Context(), addr)
	} else {
		amount, err = h.fungible.BalanceOf(c.Context(), token, addr)
	}
	if err != nil {
		return fail(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{
		Address: string(addr),
		Token:   string(token),
		Amount:  amount,
	}})
}

// ApproveAllowance lets the caller authorize the engine vault to spend a
// fungible token on their behalf (bids and voucher payments).
func (h *AccountHandler) ApproveAllowance(c *fiber.Ctx) error {
	var req dto.ApproveAllowanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Token == "" || req.Amount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "token and non-negative amount required"})
	}

	addr := middleware.GetAddress(c)
	if err := h.fungible.Approve(c.Context(), models.Address(req.Token), addr, h.vault, req.Amount); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ApproveAsset toggles the vault's operator approval over a collection,
// a precondition for auctioning assets from it.
func (h *AccountHandler) ApproveAsset(c *fiber.Ctx) error {
	var req dto.ApproveAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Contract == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "contract required"})
	}

	addr := middleware.GetAddress(c)
	if err := h.assets.SetApprovalForAll(c.Context(), models.Address(req.Contract), addr, h.vault, req.Approved); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
