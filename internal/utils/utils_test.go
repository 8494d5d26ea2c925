package utils

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestNewEditorTokenUnique(t *testing.T) {
	const trials = 10000
	seen := make(map[string]struct{}, trials)
	for i := 0; i < trials; i++ {
		tok, err := NewEditorToken()
		if err != nil {
			t.Fatalf("NewEditorToken: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("token is not base64url: %v", err)
		}
		if len(raw) < 32 {
			t.Fatalf("token carries %d bytes, want at least 32", len(raw))
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d trials", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestTokensEqual(t *testing.T) {
	if !TokensEqual("abc", "abc") {
		t.Error("equal tokens reported different")
	}
	if TokensEqual("abc", "abd") || TokensEqual("abc", "abcd") || TokensEqual("", "a") {
		t.Error("different tokens reported equal")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "admin", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if !tok.Exp.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("UserID() = %d, %v; want 42", id, err)
	}
	if claims.Role != "admin" {
		t.Fatalf("Role = %q, want admin", claims.Role)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	tok, _ := NewAccessToken("s3cret", 1, "user", 15)
	if _, err := ParseAccessToken("other", tok.Token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
	expired, _ := NewAccessToken("s3cret", 1, "user", -5)
	if _, err := ParseAccessToken("s3cret", expired.Token); err == nil {
		t.Error("expired token must be rejected")
	}
	if _, err := ParseAccessToken("s3cret", "not.a.jwt"); err == nil {
		t.Error("garbage must be rejected")
	}
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length = %d, want 96", len(rt.Raw))
	}
	h := HashRefreshRaw(rt.Raw)
	if h == rt.Raw || len(h) != 64 || strings.ToLower(h) != h {
		t.Fatalf("unexpected hash %q", h)
	}
	if HashRefreshRaw(rt.Raw) != h {
		t.Fatal("hash must be deterministic")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Error("valid password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("invalid password accepted")
	}
	BurnPasswordCheck("anything")
}
