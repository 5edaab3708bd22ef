package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/middleware"
	"github.com/nft-auction/backend/internal/services"
)

type VoucherHandler struct {
	voucherService *services.VoucherService
	log            *zap.Logger
}

func NewVoucherHandler(voucherService *services.VoucherService, log *zap.Logger) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService, log: log}
}

// Verify is a dry run: signature check plus redemption status, no transfer.
func (h *VoucherHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	status, err := h.voucherService.Verify(c.Context(), req.Voucher)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: status})
}

func (h *VoucherHandler) Redeem(c *fiber.Ctx) error {
	var req dto.RedeemVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	redeemer := middleware.GetAddress(c)
	record, err := h.voucherService.Redeem(c.Context(), req.Voucher, redeemer, req.Paid, req.AttachedValue)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: record})
}

func (h *VoucherHandler) GetRedemption(c *fiber.Ctx) error {
	record, err := h.voucherService.GetRedemption(c.Context(), c.Params("digest"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: record})
}
