package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenCodec_EncodeDecode(t *testing.T) {
	c := NewTestCodec()

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		OrgID:            "o1",
		Role:             "player",
		TokenType:        TokenTypeAccess,
	}
	token, err := c.Encode(claims, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if claims.ID == "" {
		t.Fatal("Encode should assign a jti")
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("Encode should stamp iat and exp")
	}

	got, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Subject != "u1" || got.OrgID != "o1" || got.Role != "player" {
		t.Errorf("Decode: got sub=%q org=%q role=%q", got.Subject, got.OrgID, got.Role)
	}
	if got.TokenType != TokenTypeAccess {
		t.Errorf("token_type = %q, want access", got.TokenType)
	}
	if got.ID != claims.ID {
		t.Errorf("jti = %q, want %q", got.ID, claims.ID)
	}
}

func TestTokenCodec_FreshJTIPerIssuance(t *testing.T) {
	c := NewTestCodec()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		claims := &SessionClaims{TokenType: TokenTypeAccess}
		if _, err := c.Encode(claims, 0); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if seen[claims.ID] {
			t.Fatalf("jti %q issued twice", claims.ID)
		}
		seen[claims.ID] = true
	}
}

func TestTokenCodec_PreassignedJTIKept(t *testing.T) {
	c := NewTestCodec()
	claims := &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "fixed-jti"}, TokenType: TokenTypeAccess}
	token, err := c.Encode(claims, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != "fixed-jti" {
		t.Errorf("jti = %q, want fixed-jti", got.ID)
	}
}

func TestTokenCodec_DecodeExpired(t *testing.T) {
	c := NewTestCodec()
	// ttl <= 0 falls back to the default, so issue a 1s token and wait past it.
	short, err := c.Encode(&SessionClaims{TokenType: TokenTypeAccess}, time.Second)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := c.Decode(short); err != ErrTokenExpired {
		t.Errorf("Decode expired: want ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodec_DecodeInvalid(t *testing.T) {
	c := NewTestCodec()

	if _, err := c.Decode("not-a-token"); err != ErrTokenInvalid {
		t.Errorf("garbage token: want ErrTokenInvalid, got %v", err)
	}

	// Tampered payload: flip a character in the middle segment.
	token, err := c.Encode(&SessionClaims{TokenType: TokenTypeAccess}, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "AA." + parts[2]
	if _, err := c.Decode(tampered); err != ErrTokenInvalid {
		t.Errorf("tampered token: want ErrTokenInvalid, got %v", err)
	}

	// Token from a codec with a different secret.
	other := NewTokenCodec([]byte("another-secret-another-secret-xx"), "test-issuer", time.Minute)
	foreign, err := other.Encode(&SessionClaims{TokenType: TokenTypeAccess}, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(foreign); err != ErrTokenInvalid {
		t.Errorf("wrong secret: want ErrTokenInvalid, got %v", err)
	}
}

func TestTokenCodec_DecodeWrongIssuer(t *testing.T) {
	c := NewTestCodec()
	other := NewTokenCodec([]byte("test-secret-0123456789abcdef0123"), "someone-else", time.Minute)
	token, err := other.Encode(&SessionClaims{TokenType: TokenTypeAccess}, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(token); err != ErrTokenInvalid {
		t.Errorf("wrong issuer: want ErrTokenInvalid, got %v", err)
	}
}
