package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/storage"
)

// statusFor maps the engine error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrAuthorization):
		return fiber.StatusForbidden
	case errors.Is(err, engine.ErrState):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error()})
}
