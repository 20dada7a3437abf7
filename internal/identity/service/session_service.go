package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scrimbase/backend/internal/audit"
	"scrimbase/backend/internal/revocation"
	"scrimbase/backend/internal/security"
	userdomain "scrimbase/backend/internal/user/domain"
)

// Sentinel errors for the session service; handlers map them to HTTP status codes.
// Decode failures surface as security.ErrTokenInvalid / security.ErrTokenExpired.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// UserRepo is the minimal user store needed by the session service.
type UserRepo interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
	FindByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// SessionService orchestrates the token codec and the revocation store. It is
// the only component that knows token semantics (type, expiry, claims), and
// Verify is the single choke point for trust decisions: no other component may
// call the codec directly to decide whether a token is trustworthy.
type SessionService struct {
	users      UserRepo
	codec      *security.TokenCodec
	revoked    revocation.Store
	hasher     *security.Hasher
	accessTTL  time.Duration
	refreshTTL time.Duration
	auditLog   audit.AuditLogger
}

// NewSessionService returns a SessionService with the given dependencies.
// auditLog may be nil to disable the audit trail.
func NewSessionService(
	users UserRepo,
	codec *security.TokenCodec,
	revoked revocation.Store,
	hasher *security.Hasher,
	accessTTL, refreshTTL time.Duration,
	auditLog audit.AuditLogger,
) *SessionService {
	return &SessionService{
		users:      users,
		codec:      codec,
		revoked:    revoked,
		hasher:     hasher,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		auditLog:   auditLog,
	}
}

// Login authenticates with email/password and returns a token pair.
// Failures are reported uniformly as ErrInvalidCredentials so the response does
// not reveal whether the email exists.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, *userdomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive || user.PasswordHash == "" {
		s.audit(ctx, "", "", audit.ActionLoginFailure, "session", email)
		return nil, nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.audit(ctx, user.OrgID, user.ID, audit.ActionLoginFailure, "session", "")
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.IssueTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	s.audit(ctx, user.OrgID, user.ID, audit.ActionLoginSuccess, "session", "")
	return pair, user, nil
}

// IssueTokenPair builds an access and a refresh claim set from the same user
// snapshot and encodes both. Each token gets its own fresh jti; no two calls
// produce colliding jtis.
func (s *SessionService) IssueTokenPair(user *userdomain.User) (*TokenPair, error) {
	access, err := s.codec.Encode(&security.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		OrgID:            user.OrgID,
		Role:             string(user.Role),
		TokenType:        security.TokenTypeAccess,
	}, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Encode(&security.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		OrgID:            user.OrgID,
		Role:             string(user.Role),
		TokenType:        security.TokenTypeRefresh,
	}, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Verify decodes the token and checks its jti against the revocation store.
// Returns the claims on success; security.ErrTokenExpired,
// security.ErrTokenInvalid, or ErrTokenRevoked on failure. The claims are a
// capability snapshot: they are not re-validated against live user data here.
func (s *SessionService) Verify(ctx context.Context, token string) (*security.SessionClaims, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Refresh verifies the refresh token, loads the referenced user, revokes the
// presented token's jti (rotation: refresh tokens are single-use), and issues a
// new pair. A non-refresh token is rejected with security.ErrTokenInvalid.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Verify(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeRefresh {
		return nil, security.ErrTokenInvalid
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAtOrZero()); err != nil {
		return nil, err
	}
	pair, err := s.IssueTokenPair(user)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.OrgID, user.ID, audit.ActionTokenRefresh, "session", "")
	return pair, nil
}

// RevokeToken revokes the presented token's jti with the token's own expiry so
// the revocation record self-expires. Decode failure is tolerated silently: a
// token that cannot be decoded cannot be used, so there is nothing to revoke.
func (s *SessionService) RevokeToken(ctx context.Context, token string) error {
	claims, err := s.codec.Decode(token)
	if err != nil || claims.ID == "" {
		return nil
	}
	exp := claims.ExpiresAtOrZero()
	if exp.IsZero() {
		// Expiry unreadable: fall back to the longest lifetime this service issues.
		exp = time.Now().UTC().Add(s.refreshTTL)
	}
	if err := s.revoked.Revoke(ctx, claims.ID, exp); err != nil {
		return err
	}
	s.audit(ctx, claims.OrgID, claims.Subject, audit.ActionLogout, "session", "")
	return nil
}

func (s *SessionService) audit(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.LogEvent(ctx, orgID, userID, action, resource, metadata)
}
