package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/middleware"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/services"
)

// AdminHandler is mounted behind OperatorMiddleware.
type AdminHandler struct {
	auctionService *services.AuctionService
	registry       ledger.TokenRegistry
	log            *zap.Logger
}

func NewAdminHandler(auctionService *services.AuctionService, registry ledger.TokenRegistry, log *zap.Logger) *AdminHandler {
	return &AdminHandler{auctionService: auctionService, registry: registry, log: log}
}

func (h *AdminHandler) UpdateFee(c *fiber.Ctx) error {
	var req dto.UpdateFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	operator := middleware.GetAddress(c)
	if err := h.auctionService.UpdateFeeConfig(c.Context(), operator, req.FeeBPS, models.Address(req.Recipient)); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AdminHandler) UpdateWithdrawalLock(c *fiber.Ctx) error {
	var req dto.UpdateLockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	operator := middleware.GetAddress(c)
	lock := time.Duration(req.Seconds) * time.Second
	if err := h.auctionService.UpdateWithdrawalLock(c.Context(), operator, lock); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AdminHandler) RegisterToken(c *fiber.Ctx) error {
	var req dto.RegisterTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "token required"})
	}

	if err := h.registry.Add(c.Context(), models.Address(req.Token)); err != nil {
		return fail(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true})
}
