package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/auth"
	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/models"
)

// AuthHandler implements wallet challenge/response login: the server issues
// a nonce, the wallet signs it, the server verifies and mints a JWT.
type AuthHandler struct {
	challenges *auth.ChallengeStore
	cfg        *config.Config
	log        *zap.Logger
}

func NewAuthHandler(challenges *auth.ChallengeStore, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{challenges: challenges, cfg: cfg, log: log}
}

func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	var req dto.ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	addr := models.Address(req.Address)
	if _, err := models.ParseAddress(addr); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid address"})
	}

	nonce, err := h.challenges.Issue(c.Context(), addr)
	if err != nil {
		h.log.Error("failed to issue challenge", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ChallengeResponse{Nonce: nonce}})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	addr := models.Address(req.Address)
	nonce, err := h.challenges.Consume(c.Context(), addr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "no pending challenge"})
	}

	if err := auth.VerifySignature(addr, nonce, req.Signature); err != nil {
		h.log.Debug("login signature rejected", zap.String("address", req.Address), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "signature verification failed"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, addr, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to sign jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.AuthResponse{Token: token, Address: req.Address}})
}
