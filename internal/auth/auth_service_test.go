package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func newTestService(t *testing.T, accessTTL, refreshTTL time.Duration) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	service, err := NewAuthService(privatePEM, publicPEM, accessTTL, refreshTTL)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return service
}

func TestTokenPairRoundTrip(t *testing.T) {
	service := newTestService(t, 15*time.Minute, 24*time.Hour)

	pair, err := service.GenerateTokenPair(Identity{
		UserID:             42,
		IsAdmin:            true,
		MustChangePassword: false,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	access, err := service.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if access.UserID != 42 || access.TokenType != "access" || !access.IsAdmin {
		t.Fatalf("access claims = %+v", access)
	}

	refresh, err := service.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if refresh.TokenType != "refresh" {
		t.Fatalf("refresh token type = %q", refresh.TokenType)
	}
	// Admin capability never rides on the refresh token; it is re-resolved
	// from the database at refresh time.
	if refresh.IsAdmin {
		t.Fatal("refresh token carries admin flag")
	}
	if refresh.ID == "" {
		t.Fatal("refresh token missing jti")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := newTestService(t, time.Minute, time.Hour)

	if _, err := service.ValidateToken(""); err == nil {
		t.Fatal("empty token accepted")
	}
	if _, err := service.ValidateToken("not.a.jwt"); err == nil {
		t.Fatal("malformed token accepted")
	}
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer := newTestService(t, time.Minute, time.Hour)
	verifier := newTestService(t, time.Minute, time.Hour)

	pair, err := issuer.GenerateTokenPair(Identity{UserID: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("token signed with a different key accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	service := newTestService(t, -time.Minute, time.Hour)

	pair, err := service.GenerateTokenPair(Identity{UserID: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := service.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	service := newTestService(t, time.Minute, time.Hour)

	hash, err := service.HashPassword("senha-secreta")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !service.CheckPasswordHash("senha-secreta", hash) {
		t.Fatal("correct password rejected")
	}
	if service.CheckPasswordHash("outra-senha", hash) {
		t.Fatal("wrong password accepted")
	}
}
