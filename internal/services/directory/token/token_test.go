package token

import (
	"strings"
	"testing"
	"time"
)

func newTestSigner(t *testing.T, ttl time.Duration) *Signer {
	t.Helper()
	signer, err := NewSigner([]byte("test-secret"), "absentia-test", ttl)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer
}

func TestSignAndParseRoundTrip(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	now := time.Now()

	signed, err := signer.Sign("user-1", "company-1", "session-1", now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := signer.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.CompanyID != "company-1" {
		t.Fatalf("expected company-1, got %q", claims.CompanyID)
	}
	if claims.SessionID != "session-1" {
		t.Fatalf("expected session-1, got %q", claims.SessionID)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	signer := newTestSigner(t, time.Minute)
	signed, err := signer.Sign("user-1", "company-1", "session-1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.Parse(signed); err == nil {
		t.Fatal("expected expired token to fail parsing")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	signed, err := signer.Sign("user-1", "company-1", "session-1", time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other, err := NewSigner([]byte("other-secret"), "absentia-test", time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if _, err := other.Parse(signed); err == nil {
		t.Fatal("expected token signed with different secret to fail")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	if _, err := signer.Parse("not-a-token"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := signer.Parse(strings.Repeat("a.", 3)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewSignerValidation(t *testing.T) {
	if _, err := NewSigner(nil, "absentia-test", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	signer := newTestSigner(t, 0)
	if signer.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl, got %v", signer.TTL())
	}
}

func TestSignValidation(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	if _, err := signer.Sign("", "company-1", "session-1", time.Now()); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := signer.Sign("user-1", "company-1", "", time.Now()); err == nil {
		t.Fatal("expected error for empty session id")
	}
}
