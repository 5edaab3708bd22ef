package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	Actor      Address   `json:"actor,omitempty"`
	ActorType  string    `json:"actor_type"` // user/operator/system
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"` // auction/escrow/voucher
	EntityKey  string    `json:"entity_key,omitempty"`
	Meta       any       `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
