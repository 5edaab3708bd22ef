package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-auction/backend/internal/engine"
	"github.com/nft-auction/backend/internal/events"
	"github.com/nft-auction/backend/internal/ledger"
	"github.com/nft-auction/backend/internal/models"
	"github.com/nft-auction/backend/internal/storage"
	"github.com/nft-auction/backend/internal/voucher"
)

// VoucherService redeems creator-signed vouchers: verify, collect payment,
// mark redeemed, mint to the redeemer and settle proceeds to the creator.
type VoucherService struct {
	redemptions storage.RedemptionStore
	audits      storage.AuditStore
	assets      ledger.AssetLedger
	payments    *ledger.Payments
	publisher   events.Publisher
	clock       engine.Clock
	locks       *engine.KeyedMutex
	fees        *FeeConfig
	log         *zap.Logger
}

func NewVoucherService(
	redemptions storage.RedemptionStore,
	audits storage.AuditStore,
	assets ledger.AssetLedger,
	payments *ledger.Payments,
	publisher events.Publisher,
	clock engine.Clock,
	fees *FeeConfig,
	log *zap.Logger,
) *VoucherService {
	return &VoucherService{
		redemptions: redemptions,
		audits:      audits,
		assets:      assets,
		payments:    payments,
		publisher:   publisher,
		clock:       clock,
		locks:       engine.NewKeyedMutex(),
		fees:        fees,
		log:         log,
	}
}

// VoucherStatus is the result of a dry-run verification.
type VoucherStatus struct {
	Digest   string         `json:"digest"`
	Creator  models.Address `json:"creator"`
	MinTotal int64          `json:"min_total"`
	Redeemed bool           `json:"redeemed"`
}

// Verify checks a voucher's signature without redeeming it and reports
// whether it has already been consumed.
func (s *VoucherService) Verify(ctx context.Context, v models.Voucher) (*VoucherStatus, error) {
	creator, err := voucher.Verify(v)
	if err != nil {
		return nil, err
	}
	digest, err := voucher.DigestHex(v)
	if err != nil {
		return nil, err
	}

	redeemed := false
	if _, err := s.redemptions.GetByDigest(ctx, digest); err == nil {
		redeemed = true
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return &VoucherStatus{
		Digest:   digest,
		Creator:  creator,
		MinTotal: v.MinTotal(),
		Redeemed: redeemed,
	}, nil
}

// Redeem consumes a voucher. The redemption record is the single-use gate:
// two concurrent redemptions of the same voucher serialize on the digest
// lock and the loser is refunded in full. Settlement legs (mint, proceeds,
// fee) are checkpointed on the record as they land; a redemption that failed
// partway is resumed by the same redeemer on retry, never repeating a leg.
func (s *VoucherService) Redeem(ctx context.Context, v models.Voucher, redeemer models.Address, paid, attachedValue int64) (*models.VoucherRedemption, error) {
	creator, err := voucher.Verify(v)
	if err != nil {
		return nil, err
	}
	if paid < v.MinTotal() {
		return nil, engine.ErrPriceTooLow
	}

	digest, err := voucher.DigestHex(v)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("voucher:" + digest)
	defer unlock()

	record, err := s.redemptions.GetByDigest(ctx, digest)
	switch {
	case err == nil:
		if record.Settled() || record.Redeemer != redeemer {
			return nil, engine.ErrAlreadyRedeemed
		}
		// Half-settled record from a failed attempt: the payment is
		// already locked, pick up where it stopped.
	case errors.Is(err, storage.ErrNotFound):
		if err := s.payments.Lock(ctx, v.PayToken, redeemer, paid, attachedValue); err != nil {
			return nil, err
		}

		// Fee applies to the surplus above the voucher minimum, same
		// split rule as auction settlement; frozen on the record so a
		// later fee change cannot skew a resumed payout.
		feeBPS, _ := s.fees.Snapshot()
		split := engine.ComputeSettlement(paid, v.MinTotal(), feeBPS)

		record = &models.VoucherRedemption{
			ID:         uuid.New(),
			Digest:     digest,
			Creator:    creator,
			Contract:   v.Contract,
			TokenID:    v.TokenID,
			Redeemer:   redeemer,
			Paid:       paid,
			Proceeds:   split.SellerProceeds,
			Fee:        split.Fee,
			RedeemedAt: s.clock.Now(),
		}
		if err := s.redemptions.Insert(ctx, record); err != nil {
			// Funds are already locked; hand them straight back.
			if releaseErr := s.payments.Release(ctx, v.PayToken, redeemer, paid); releaseErr != nil {
				s.log.Error("failed to refund losing redemption",
					zap.String("digest", digest), zap.Error(releaseErr))
			}
			if errors.Is(err, storage.ErrDuplicateKey) {
				return nil, engine.ErrAlreadyRedeemed
			}
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.settleRedemption(ctx, v, record); err != nil {
		return nil, err
	}

	_ = s.audits.Log(ctx, &models.AuditLog{
		ID:         uuid.New(),
		Actor:      redeemer,
		ActorType:  "user",
		Action:     "voucher_redeemed",
		EntityType: "voucher",
		EntityKey:  digest,
		Meta: map[string]any{
			"creator":  string(creator),
			"asset":    v.Asset().Key(),
			"paid":     record.Paid,
			"proceeds": record.Proceeds,
			"fee":      record.Fee,
		},
		CreatedAt: record.RedeemedAt,
	})
	if err := s.publisher.Publish(ctx, events.StreamAuction, events.Event{
		Type: events.EventVoucherRedeemed,
		Payload: map[string]any{
			"digest":   digest,
			"asset":    v.Asset().Key(),
			"creator":  string(creator),
			"redeemer": string(redeemer),
			"paid":     record.Paid,
		},
	}); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", events.EventVoucherRedeemed), zap.Error(err))
	}

	return record, nil
}

// settleRedemption runs the outstanding settlement legs, checkpointing each
// one on the record so no leg ever runs twice.
func (s *VoucherService) settleRedemption(ctx context.Context, v models.Voucher, r *models.VoucherRedemption) error {
	if !r.Minted {
		if err := s.assets.Mint(ctx, v.Asset(), r.Redeemer, v.URI); err != nil {
			return err
		}
		r.Minted = true
		if err := s.redemptions.Update(ctx, r); err != nil {
			return err
		}
	}

	if !r.ProceedsPaid {
		if err := s.payments.Release(ctx, v.PayToken, r.Creator, r.Proceeds); err != nil {
			return err
		}
		r.ProceedsPaid = true
		if err := s.redemptions.Update(ctx, r); err != nil {
			return err
		}
	}

	if !r.FeePaid {
		_, feeRecipient := s.fees.Snapshot()
		if r.Fee > 0 && feeRecipient != "" {
			if err := s.payments.Release(ctx, v.PayToken, feeRecipient, r.Fee); err != nil {
				return err
			}
		}
		r.FeePaid = true
		if err := s.redemptions.Update(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

// GetRedemption looks up a redemption by the voucher's canonical digest.
func (s *VoucherService) GetRedemption(ctx context.Context, digest string) (*models.VoucherRedemption, error) {
	return s.redemptions.GetByDigest(ctx, digest)
}
