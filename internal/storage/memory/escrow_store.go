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

type EscrowStore struct {
	mu   sync.RWMutex
	data map[string]*models.EscrowEntry // assetKey|bidder
}

func NewEscrowStore() *EscrowStore {
	return &EscrowStore{data: make(map[string]*models.EscrowEntry)}
}

func escrowKey(assetKey string, bidder models.Address) string {
	return assetKey + "|" + string(bidder)
}

func (s *EscrowStore) Upsert(_ context.Context, e *models.EscrowEntry) error {
	if e == nil || e.AssetKey == "" || e.Bidder == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
		e.ID = cp.ID
	}
	s.data[escrowKey(e.AssetKey, e.Bidder)] = &cp
	return nil
}

func (s *EscrowStore) Get(_ context.Context, assetKey string, bidder models.Address) (*models.EscrowEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[escrowKey(assetKey, bidder)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *EscrowStore) GetBySeq(_ context.Context, assetKey string, seq int64) (*models.EscrowEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.data {
		if e.AssetKey == assetKey && e.Seq == seq {
			cp := *e
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *EscrowStore) Delete(_ context.Context, assetKey string, bidder models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := escrowKey(assetKey, bidder)
	if _, ok := s.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

func (s *EscrowStore) ListByAsset(_ context.Context, assetKey string) ([]*models.EscrowEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.EscrowEntry
	for _, e := range s.data {
		if e.AssetKey == assetKey {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (s *EscrowStore) ListLockedBefore(_ context.Context, cutoff time.Time) ([]*models.EscrowEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.EscrowEntry
	for _, e := range s.data {
		if !e.LockedAt.After(cutoff) {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LockedAt.Before(result[j].LockedAt)
	})
	return result, nil
}

var _ storage.EscrowStore = (*EscrowStore)(nil)
