package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	token, jti, exp, err := p.Issue("u1", "a@example.com", "admin", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q, want %q", claims.Subject, "u1")
	}
	if claims.Email != "a@example.com" {
		t.Errorf("email = %q, want %q", claims.Email, "a@example.com")
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want %q", claims.Role, "admin")
	}
	if claims.TeamID != "t1" {
		t.Errorf("team_id = %q, want %q", claims.TeamID, "t1")
	}
}

func TestTokenProvider_IssueTeamless(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, _, err := p.Issue("u1", "a@example.com", "admin", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.TeamID != "" {
		t.Errorf("team_id = %q, want empty", claims.TeamID)
	}
}

func TestTokenProvider_ValidateInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.Validate("invalid-token"); err != ErrInvalidToken {
		t.Errorf("Validate invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateWrongIssuer(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, _, err := p.Issue("u1", "a@example.com", "editor", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	signer, _ := ParsePrivateKey(testPrivateKeyPEM)
	pub, _ := ParsePublicKey(testPublicKeyPEM)
	other := NewTokenProvider(signer, pub, "other-issuer", "test-audience", time.Hour)
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate with wrong issuer: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	p := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -time.Minute)
	token, _, _, err := p.Issue("u1", "a@example.com", "editor", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestNewVerificationToken(t *testing.T) {
	tok, exp, err := NewVerificationToken(24 * time.Hour)
	if err != nil {
		t.Fatalf("NewVerificationToken: %v", err)
	}
	if len(tok) != 48 {
		t.Errorf("token length = %d, want 48 hex chars", len(tok))
	}
	if !exp.After(time.Now().Add(23 * time.Hour)) {
		t.Errorf("expiry %v should be about 24h out", exp)
	}

	tok2, _, err := NewVerificationToken(24 * time.Hour)
	if err != nil {
		t.Fatalf("NewVerificationToken: %v", err)
	}
	if tok == tok2 {
		t.Error("two verification tokens should not collide")
	}
}
