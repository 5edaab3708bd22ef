// Package memory provides in-memory storage implementations used by tests
// and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

type AuctionStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.Auction
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{data: make(map[uuid.UUID]*models.Auction)}
}

func (s *AuctionStore) Insert(_ context.Context, a *models.Auction) error {
	if a == nil || a.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := a.AssetKey()
	for _, existing := range s.data {
		if existing.AssetKey() != key {
			continue
		}
		if existing.Status == models.AuctionStatusCreated || existing.Status == models.AuctionStatusResulted {
			return storage.ErrDuplicateKey
		}
	}

	cp := *a
	s.data[a.ID] = &cp
	return nil
}

func (s *AuctionStore) GetByAsset(_ context.Context, assetKey string) (*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Auction
	for _, a := range s.data {
		if a.AssetKey() != assetKey {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *AuctionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *AuctionStore) Update(_ context.Context, a *models.Auction) error {
	if a == nil || a.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[a.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *a
	s.data[a.ID] = &cp
	return nil
}

func (s *AuctionStore) ListEndedUnresolved(_ context.Context, now time.Time) ([]*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Auction
	for _, a := range s.data {
		if a.Status == models.AuctionStatusCreated && !now.Before(a.EndTime) {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EndTime.Before(result[j].EndTime)
	})
	return result, nil
}

func (s *AuctionStore) List(_ context.Context, status string, limit int) ([]*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Auction
	for _, a := range s.data {
		if status != "" && a.Status != status {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.AuctionStore = (*AuctionStore)(nil)
