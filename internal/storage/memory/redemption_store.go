package memory

import (
	"context"
	"sync"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

type RedemptionStore struct {
	mu       sync.RWMutex
	byDigest map[string]*models.VoucherRedemption
}

func NewRedemptionStore() *RedemptionStore {
	return &RedemptionStore{
		byDigest: make(map[string]*models.VoucherRedemption),
	}
}

func (s *RedemptionStore) Insert(_ context.Context, r *models.VoucherRedemption) error {
	if r == nil || r.Digest == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDigest[r.Digest]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.byDigest[r.Digest] = &cp
	return nil
}

func (s *RedemptionStore) GetByDigest(_ context.Context, digest string) (*models.VoucherRedemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byDigest[digest]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *RedemptionStore) Update(_ context.Context, r *models.VoucherRedemption) error {
	if r == nil || r.Digest == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byDigest[r.Digest]; !ok {
		return storage.ErrNotFound
	}
	cp := *r
	s.byDigest[r.Digest] = &cp
	return nil
}

var _ storage.RedemptionStore = (*RedemptionStore)(nil)
