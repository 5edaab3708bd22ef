package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nft-auction/backend/internal/models"
)

// SignaturePrefix is prepended to the challenge nonce before signing, so a
// login signature can never be replayed as anything else.
const SignaturePrefix = "auction-auth-v1/"

// ChallengeStore keeps one-shot login nonces in redis.
type ChallengeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewChallengeStore(client *redis.Client, ttl time.Duration) *ChallengeStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ChallengeStore{client: client, ttl: ttl}
}

func challengeKey(address models.Address) string {
	return "auth:challenge:" + string(address)
}

// Issue creates a fresh nonce for the address, replacing any previous one.
func (s *ChallengeStore) Issue(ctx context.Context, address models.Address) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(raw)

	if err := s.client.Set(ctx, challengeKey(address), nonce, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	return nonce, nil
}

// Consume removes and returns the pending nonce. A nonce can be used once.
func (s *ChallengeStore) Consume(ctx context.Context, address models.Address) (string, error) {
	nonce, err := s.client.GetDel(ctx, challengeKey(address)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("no pending challenge for %s", address)
		}
		return "", fmt.Errorf("load challenge: %w", err)
	}
	return nonce, nil
}

// VerifySignature checks the wallet's ed25519 signature over the prefixed
// nonce against the claimed address.
func VerifySignature(address models.Address, nonce, signatureHex string) error {
	pub, err := models.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature encoding")
	}
	if !ed25519.Verify(pub, []byte(SignaturePrefix+nonce), sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}
