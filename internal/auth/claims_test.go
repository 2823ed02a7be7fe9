package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParseJWT_MissingUserID(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		AccessLevel: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := ParseJWT(signed, secret); err == nil {
		t.Fatal("expected error for missing user_id")
	}
}

func TestParseJWT_InvalidAccessLevel(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		UserID:      "user-1",
		AccessLevel: "superuser",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := ParseJWT(signed, secret); err == nil {
		t.Fatal("expected error for invalid access_level")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token := mustToken(t, []byte("secret-a"), "user-1", "technical")
	if _, err := ParseJWT(token, []byte("secret-b")); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestParseJWT_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "user-1", "technical")

	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", claims.UserID)
	}
	if claims.AccessLevel != "technical" {
		t.Fatalf("expected technical, got %q", claims.AccessLevel)
	}
}
