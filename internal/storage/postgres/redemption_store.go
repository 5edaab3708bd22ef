package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
)

type RedemptionStore struct {
	pool *Pool
}

func NewRedemptionStore(pool *Pool) *RedemptionStore {
	return &RedemptionStore{pool: pool}
}

var _ storage.RedemptionStore = (*RedemptionStore)(nil)

// Insert records a redemption. The unique index on digest makes the voucher
// single-use.
func (s *RedemptionStore) Insert(ctx context.Context, r *models.VoucherRedemption) error {
	if r == nil || r.Digest == "" {
		return storage.ErrInvalidInput
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO voucher_redemptions (
			id, digest, creator, contract, token_id, redeemer, paid,
			proceeds, fee, minted, proceeds_paid, fee_paid, redeemed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.ID, r.Digest, r.Creator, r.Contract, int64(r.TokenID), r.Redeemer, r.Paid,
		r.Proceeds, r.Fee, r.Minted, r.ProceedsPaid, r.FeePaid, r.RedeemedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

func (s *RedemptionStore) GetByDigest(ctx context.Context, digest string) (*models.VoucherRedemption, error) {
	var (
		r       models.VoucherRedemption
		tokenID int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, digest, creator, contract, token_id, redeemer, paid,
		       proceeds, fee, minted, proceeds_paid, fee_paid, redeemed_at
		FROM voucher_redemptions WHERE digest = $1
	`, digest).Scan(&r.ID, &r.Digest, &r.Creator, &r.Contract, &tokenID, &r.Redeemer, &r.Paid,
		&r.Proceeds, &r.Fee, &r.Minted, &r.ProceedsPaid, &r.FeePaid, &r.RedeemedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	r.TokenID = uint64(tokenID)
	return &r, nil
}

// Update persists the settlement checkpoints of an existing record.
func (s *RedemptionStore) Update(ctx context.Context, r *models.VoucherRedemption) error {
	if r == nil || r.Digest == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE voucher_redemptions
		SET minted = $1, proceeds_paid = $2, fee_paid = $3
		WHERE digest = $4
	`, r.Minted, r.ProceedsPaid, r.FeePaid, r.Digest)
	if err != nil {
		return fmt.Errorf("update redemption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
