package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/auth"
	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/db"
	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/events"
	apphttp "github.com/nft-auction/backend/internal/http"
	"github.com/nft-auction/backend/internal/http/handlers"
	"github.com/nft-auction/backend/internal/ledger"
	ledgerpg "github.com/nft-auction/backend/internal/ledger/postgres"
	"github.com/nft-auction/backend/internal/metadata"
	"github.com/nft-auction/backend/internal/services"
	"github.com/nft-auction/backend/internal/storage/postgres"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool.Pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Stores
	auctionStore := postgres.NewAuctionStore(pool)
	escrowStore := postgres.NewEscrowStore(pool)
	redemptionStore := postgres.NewRedemptionStore(pool)
	auditStore := postgres.NewAuditStore(pool)

	// Ledgers
	fungible := ledgerpg.NewFungibleLedger(pool)
	native := ledgerpg.NewNativeLedger(pool)
	assets := ledgerpg.NewAssetLedger(pool)
	registry := ledgerpg.NewTokenRegistry(pool)
	payments := ledger.NewPayments(fungible, native, registry, cfg.VaultAccount)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	clock := engine.SystemClock{}
	fees := services.NewFeeConfig(cfg)
	auctionService := services.NewAuctionService(auctionStore, escrowStore, auditStore, assets, payments, publisher, cfg, clock, fees, log)
	voucherService := services.NewVoucherService(redemptionStore, auditStore, assets, payments, publisher, clock, fees, log)

	// Handlers
	challenges := auth.NewChallengeStore(rdb, cfg.ChallengeTTL)
	previewer := metadata.NewPreviewer(cfg.PreviewFetchTimeoutMS, 2, cfg.PreviewGatewayURL, log)
	authHandler := handlers.NewAuthHandler(challenges, cfg, log)
	auctionHandler := handlers.NewAuctionHandler(auctionService, log)
	voucherHandler := handlers.NewVoucherHandler(voucherService, log)
	accountHandler := handlers.NewAccountHandler(fungible, native, assets, cfg.VaultAccount, log)
	adminHandler := handlers.NewAdminHandler(auctionService, registry, log)
	metaHandler := handlers.NewMetaHandler(assets, previewer, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, auctionHandler, voucherHandler, accountHandler, adminHandler, metaHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
