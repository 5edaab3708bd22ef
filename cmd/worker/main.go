package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/config"
	"github.com/nft-auction/backend/internal/db"
	"github.com/nft-auction/backend/internal/events"
	"github.com/nft-auction/backend/internal/storage"
	"github.com/nft-auction/backend/internal/storage/postgres"
)

// The worker announces auctions whose end time has passed (so sellers and
// operators know they can be resulted) and escrow entries whose withdrawal
// lock has elapsed (so outbid bidders know they can reclaim funds). Each
// announcement goes out once, deduplicated through redis.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	auctionStore := postgres.NewAuctionStore(pool)
	escrowStore := postgres.NewEscrowStore(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	log.Info("worker started",
		zap.Duration("resolve_interval", cfg.ResolvePollInterval),
		zap.Duration("unlock_interval", cfg.UnlockPollInterval),
	)

	resolveTicker := time.NewTicker(cfg.ResolvePollInterval)
	unlockTicker := time.NewTicker(cfg.UnlockPollInterval)
	defer resolveTicker.Stop()
	defer unlockTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-resolveTicker.C:
			announceEndedAuctions(ctx, auctionStore, rdb, publisher, log)
		case <-unlockTicker.C:
			announceUnlockedEscrow(ctx, escrowStore, rdb, publisher, cfg.WithdrawalLock(), log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func announceEndedAuctions(ctx context.Context, auctions storage.AuctionStore, rdb *redis.Client, publisher events.Publisher, log *zap.Logger) {
	ended, err := auctions.ListEndedUnresolved(ctx, time.Now().UTC())
	if err != nil {
		log.Error("failed to list ended auctions", zap.Error(err))
		return
	}

	for _, a := range ended {
		key := fmt.Sprintf("worker:ended:%s", a.ID)
		set, err := rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
		if err != nil || !set {
			continue
		}

		log.Info("auction ended, awaiting result",
			zap.String("auction_id", a.ID.String()),
			zap.String("asset", a.AssetKey()),
			zap.Int64("highest_bid", a.HighestBid),
		)
		_ = publisher.Publish(ctx, events.StreamAuction, events.Event{
			Type: events.EventAuctionEnded,
			Payload: map[string]any{
				"auction_id":  a.ID.String(),
				"asset":       a.AssetKey(),
				"seller":      a.Seller,
				"highest_bid": a.HighestBid,
				"bid_count":   a.BidCount,
			},
		})
	}
}

func announceUnlockedEscrow(ctx context.Context, escrows storage.EscrowStore, rdb *redis.Client, publisher events.Publisher, lock time.Duration, log *zap.Logger) {
	cutoff := time.Now().UTC().Add(-lock)
	entries, err := escrows.ListLockedBefore(ctx, cutoff)
	if err != nil {
		log.Error("failed to list unlocked escrow", zap.Error(err))
		return
	}

	for _, e := range entries {
		key := fmt.Sprintf("worker:unlocked:%s:%s:%d", e.AssetKey, e.Bidder, e.Seq)
		set, err := rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
		if err != nil || !set {
			continue
		}

		_ = publisher.Publish(ctx, events.StreamAuction, events.Event{
			Type: events.EventEscrowUnlocked,
			Payload: map[string]any{
				"asset":  e.AssetKey,
				"bidder": e.Bidder,
				"amount": e.Amount,
				"seq":    e.Seq,
			},
		})
	}
}
