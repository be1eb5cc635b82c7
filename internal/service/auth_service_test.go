package service

import (
	"testing"
	"time"

	"github.com/ereas/ereas-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func testAuthService() *AuthService {
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return NewAuthService(cfg, nil, nil, nil)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := testAuthService()

	hash, err := svc.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in plaintext")
	}

	if err := svc.CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := svc.CheckPassword(hash, "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testAuthService()

	token, err := svc.signToken(TokenTypeStudent, 42, "jti-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.TokenType != TokenTypeStudent {
		t.Errorf("got token type %s, want student", claims.TokenType)
	}
	if claims.UserID != 42 {
		t.Errorf("got user id %d, want 42", claims.UserID)
	}
	if claims.ID != "jti-1" {
		t.Errorf("got jti %s, want jti-1", claims.ID)
	}
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	svc := testAuthService()
	token, err := svc.signToken(TokenTypeAdmin, 1, "jti-2")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewAuthService(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour}, nil, nil, nil)
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}
