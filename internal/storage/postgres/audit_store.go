package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

type AuditStore struct {
	pool *Pool
}

func NewAuditStore(pool *Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

var _ storage.AuditStore = (*AuditStore)(nil)

func (s *AuditStore) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry == nil || entry.Action == "" {
		return storage.ErrInvalidInput
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	var meta []byte
	if entry.Meta != nil {
		var err error
		meta, err = json.Marshal(entry.Meta)
		if err != nil {
			return fmt.Errorf("marshal audit meta: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, actor, actor_type, action, entity_type, entity_key, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.Actor, entry.ActorType, entry.Action, entry.EntityType, entry.EntityKey, meta, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) GetByEntity(ctx context.Context, entityType, entityKey string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, actor, actor_type, action, entity_type, entity_key, meta, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_key = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		var (
			e    models.AuditLog
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.ActorType, &e.Action, &e.EntityType, &e.EntityKey, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if len(meta) > 0 {
			var decoded any
			if err := json.Unmarshal(meta, &decoded); err == nil {
				e.Meta = decoded
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}
