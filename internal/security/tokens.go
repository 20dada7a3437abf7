package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned when a token is malformed, has a bad signature,
	// or was signed with an unexpected method.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is past its expiry.
	// A token is dead at the exact expiry instant (now >= exp).
	ErrTokenExpired = errors.New("token expired")
)

// Token types carried in the token_type claim. Callers must check the type
// explicitly for the operation they are performing.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SessionClaims is the claim set for both access and refresh tokens.
// The jti (RegisteredClaims.ID) is the only value checked against revocation;
// the remaining claims are a capability snapshot taken at issuance.
type SessionClaims struct {
	jwt.RegisteredClaims
	OrgID     string `json:"org_id,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
}

// TokenCodec signs and verifies session tokens with a symmetric HS256 secret.
// It is stateless: it knows nothing about revocation or token semantics beyond
// signature, expiry, and issuer.
type TokenCodec struct {
	secret     []byte
	issuer     string
	defaultTTL time.Duration
}

// NewTokenCodec returns a TokenCodec signing with secret. issuer is set on
// claims and validated on decode. defaultTTL is used by Encode when the caller
// supplies no TTL override.
func NewTokenCodec(secret []byte, issuer string, defaultTTL time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, issuer: issuer, defaultTTL: defaultTTL}
}

// Encode signs the claim set and returns the serialized token.
// A fresh unique jti is assigned if absent, iat is stamped, and exp is computed
// from ttl (or the codec default when ttl <= 0). Timestamps are second-granularity.
func (c *TokenCodec) Encode(claims *SessionClaims, ttl time.Duration) (string, error) {
	if claims.ID == "" {
		jti, err := generateJTI()
		if err != nil {
			return "", err
		}
		claims.ID = jti
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := time.Now().UTC().Truncate(time.Second)
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode verifies signature, expiry, and issuer and returns the claims.
// Returns ErrTokenExpired when the token is past its expiry and ErrTokenInvalid
// for every other failure. Decode does not consult revocation; that is layered
// on top by the session service.
func (c *TokenCodec) Decode(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != c.issuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExpiresAtOrZero returns the claims' expiry, or the zero time when unset.
// Used by revocation to self-expire records with the token's own lifetime.
func (cl *SessionClaims) ExpiresAtOrZero() time.Time {
	if cl == nil || cl.ExpiresAt == nil {
		return time.Time{}
	}
	return cl.ExpiresAt.Time
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
