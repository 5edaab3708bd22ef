package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/http/dto"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/metadata"
)

// MetaHandler serves asset metadata previews for the storefront.
type MetaHandler struct {
	assets    ledger.AssetLedger
	previewer *metadata.Previewer
	log       *zap.Logger
}

func NewMetaHandler(assets ledger.AssetLedger, previewer *metadata.Previewer, log *zap.Logger) *MetaHandler {
	return &MetaHandler{assets: assets, previewer: previewer, log: log}
}

// GetVoucherPreview renders a preview for an arbitrary voucher content URI,
// so buyers can inspect what a voucher mints before redeeming it.
func (h *MetaHandler) GetVoucherPreview(c *fiber.Ctx) error {
	uri := c.Query("uri")
	if uri == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "uri query parameter required"})
	}

	preview, err := h.previewer.Fetch(c.Context(), uri)
	if err != nil {
		h.log.Warn("preview fetch failed", zap.String("uri", uri), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "metadata fetch failed"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PreviewResponse{
		URI:         preview.URI,
		Title:       preview.Title,
		Description: preview.Description,
		Image:       preview.Image,
	}})
}

// GetAssetPreview resolves the asset's metadata URI and returns a rendered
// preview (title, description, image).
func (h *MetaHandler) GetAssetPreview(c *fiber.Ctx) error {
	contract, tokenID, err := assetParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token id"})
	}

	uri, err := h.assets.URI(c.Context(), contract, tokenID)
	if err != nil {
		return fail(c, h.log, err)
	}
	if uri == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "asset has no metadata"})
	}

	preview, err := h.previewer.Fetch(c.Context(), uri)
	if err != nil {
		h.log.Warn("preview fetch failed", zap.String("uri", uri), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "metadata fetch failed"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PreviewResponse{
		URI:         preview.URI,
		Title:       preview.Title,
		Description: preview.Description,
		Image:       preview.Image,
	}})
}
