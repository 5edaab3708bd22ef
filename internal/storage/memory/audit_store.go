package memory

import (
	"context"
	"sync"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

type AuditStore struct {
	mu      sync.RWMutex
	entries []*models.AuditLog
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Log(_ context.Context, entry *models.AuditLog) error {
	if entry == nil || entry.Action == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *AuditStore) GetByEntity(_ context.Context, entityType, entityKey string, limit int) ([]*models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.AuditLog
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.EntityType != entityType || e.EntityKey != entityKey {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

var _ storage.AuditStore = (*AuditStore)(nil)
