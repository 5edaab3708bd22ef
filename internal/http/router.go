package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/http/handlers"
	"github.com/nft-auction/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	auctionHandler *handlers.AuctionHandler,
	voucherHandler *handlers.VoucherHandler,
	accountHandler *handlers.AccountHandler,
	adminHandler *handlers.AdminHandler,
	metaHandler *handlers.MetaHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/challenge", authHandler.Challenge)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Auctions (public reads)
	api.Get("/auctions", auctionHandler.ListAuctions)
	api.Get("/auctions/:contract/:tokenId", auctionHandler.GetAuction)
	api.Get("/auctions/:contract/:tokenId/escrow", auctionHandler.ListEscrow)
	api.Get("/assets/:contract/:tokenId/preview", metaHandler.GetAssetPreview)
	api.Get("/vouchers/preview", metaHandler.GetVoucherPreview)
	api.Post("/vouchers/verify", voucherHandler.Verify)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Auctions
	protected.Post("/auctions", auctionHandler.CreateAuction)
	protected.Post("/auctions/:contract/:tokenId/bids", auctionHandler.PlaceBid)
	protected.Post("/auctions/:contract/:tokenId/withdraw", auctionHandler.WithdrawBid)
	protected.Post("/auctions/:contract/:tokenId/result", auctionHandler.ResultAuction)
	protected.Post("/auctions/:contract/:tokenId/pay", auctionHandler.PayEscrow)
	protected.Post("/auctions/:contract/:tokenId/cancel", auctionHandler.CancelAuction)

	// Vouchers
	protected.Post("/vouchers/redeem", voucherHandler.Redeem)
	protected.Get("/vouchers/:digest", voucherHandler.GetRedemption)

	// Account
	protected.Get("/me/balance", accountHandler.GetBalance)
	protected.Post("/me/allowances", accountHandler.ApproveAllowance)
	protected.Post("/me/assets/approve", accountHandler.ApproveAsset)

	// Admin (operator accounts only)
	admin := protected.Group("/admin", middleware.OperatorMiddleware(cfg))
	admin.Post("/fee", adminHandler.UpdateFee)
	admin.Post("/withdrawal-lock", adminHandler.UpdateWithdrawalLock)
	admin.Post("/tokens", adminHandler.RegisterToken)
	admin.Post("/auctions/:contract/:tokenId/manual-result", auctionHandler.ManualResultAuction)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
