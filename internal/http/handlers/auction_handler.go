package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/middleware"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/services"
)

type AuctionHandler struct {
	auctionService *services.AuctionService
	log            *zap.Logger
}

func NewAuctionHandler(auctionService *services.AuctionService, log *zap.Logger) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService, log: log}
}

// assetParams parses the :contract/:tokenId route segment pair.
func assetParams(c *fiber.Ctx) (models.Address, uint64, error) {
	contract := models.Address(c.Params("contract"))
	tokenID, err := strconv.ParseUint(c.Params("tokenId"), 10, 64)
	if err != nil {
		return "", 0, err
	}
	return contract, tokenID, nil
}

func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req dto.CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	seller := middleware.GetAddress(c)
	asset := models.AssetRef{
		Contract: models.Address(req.Contract),
		TokenID:  req.TokenID,
		Quantity: req.Quantity,
	}
	a, err := h.auctionService.CreateAuction(
		c.Context(), seller, asset,
		models.Address(req.PayToken), req.ReservePrice,
		time.Unix(req.StartTime, 0).UTC(), time.Unix(req.EndTime, 0).UTC(),
	)
	if err != nil {
		return fail(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: a})
}

func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	a, err := h.auctionService.GetAuction(c.Context(), contract, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: a})
}

func (h *AuctionHandler) ListAuctions(c *fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	auctions, err := h.auctionService.ListAuctions(c.Context(), c.Query("status"), limit)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: auctions})
}

func (h *AuctionHandler) ListEscrow(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	entries, err := h.auctionService.ListEscrow(c.Context(), contract, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	var req dto.PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	bidder := middleware.GetAddress(c)
	entry, err := h.auctionService.PlaceBid(c.Context(), contract, tokenID, bidder, req.Amount, req.AttachedValue)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: entry})
}

func (h *AuctionHandler) WithdrawBid(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	var req dto.WithdrawBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	bidder := middleware.GetAddress(c)
	if err := h.auctionService.WithdrawBid(c.Context(), contract, tokenID, bidder, req.Seq); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AuctionHandler) ResultAuction(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	caller := middleware.GetAddress(c)
	a, err := h.auctionService.ResultAuction(c.Context(), contract, tokenID, caller)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: a})
}

func (h *AuctionHandler) PayEscrow(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	var req dto.PayEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	caller := middleware.GetAddress(c)
	if err := h.auctionService.PayEscrow(c.Context(), contract, tokenID, caller, models.Address(req.Payee)); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AuctionHandler) CancelAuction(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	caller := middleware.GetAddress(c)
	if err := h.auctionService.CancelAuction(c.Context(), contract, tokenID, caller); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ManualResultAuction is the operator override: settles on an explicit
// escrow sequence.
func (h *AuctionHandler) ManualResultAuction(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	var req dto.ManualResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	operator := middleware.GetAddress(c)
	a, err := h.auctionService.ManualResultAuction(c.Context(), contract, tokenID, operator, req.WinningSeq)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: a})
}
