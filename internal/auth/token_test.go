package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParseToken(t *testing.T) {
	token, expiresAt, err := SignToken("secret", time.Hour, 42, "admin")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiry = %v, want about an hour out", expiresAt)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("user id = %d, want 42", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _, err := SignToken("secret", time.Hour, 42, "user")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatal("expected error for wrong secret, got nil")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, _, err := SignToken("secret", -time.Minute, 42, "user")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestDecodeExpiryWithoutSecret(t *testing.T) {
	token, expiresAt, err := SignToken("secret", time.Hour, 42, "user")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	got, err := DecodeExpiry(token)
	if err != nil {
		t.Fatalf("decode expiry: %v", err)
	}
	// JWT timestamps carry second precision
	if got.Unix() != expiresAt.Unix() {
		t.Errorf("expiry = %v, want %v", got, expiresAt)
	}
}

func TestDecodeExpiryExpiredToken(t *testing.T) {
	token, _, err := SignToken("secret", -time.Hour, 42, "user")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	got, err := DecodeExpiry(token)
	if err != nil {
		t.Fatalf("decode expiry of expired token: %v", err)
	}
	if !got.Before(time.Now()) {
		t.Errorf("expiry = %v, want a past time", got)
	}
}

func TestDecodeExpiryMalformed(t *testing.T) {
	if _, err := DecodeExpiry("garbage"); !errors.Is(err, ErrMalformedToken) {
		t.Errorf("err = %v, want ErrMalformedToken", err)
	}
}
