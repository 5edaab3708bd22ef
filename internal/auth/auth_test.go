package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/nft-auction/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	addr := models.Address("WalletWalletWalletWalletWalletWa")

	token, err := GenerateJWT("secret", addr, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("ParseJWT failed: %v", err)
	}
	if claims.Address != addr {
		t.Errorf("address = %s, want %s", claims.Address, addr)
	}

	if _, err := ParseJWT("wrong-secret", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestVerifySignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	addr := models.AddressFromKey(pub)
	nonce := "deadbeef"

	sig := ed25519.Sign(priv, []byte(SignaturePrefix+nonce))
	if err := VerifySignature(addr, nonce, hex.EncodeToString(sig)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	// Signature over the bare nonce must not pass.
	bare := ed25519.Sign(priv, []byte(nonce))
	if err := VerifySignature(addr, nonce, hex.EncodeToString(bare)); err == nil {
		t.Error("expected error for unprefixed signature")
	}

	// Different key.
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifySignature(models.AddressFromKey(otherPub), nonce, hex.EncodeToString(sig)); err == nil {
		t.Error("expected error for wrong signer")
	}
}
