package realtime

import (
	"context"
	"errors"

	orgdomain "scrimbase/backend/internal/organization/domain"
	"scrimbase/backend/internal/security"
	userdomain "scrimbase/backend/internal/user/domain"
)

var (
	// ErrNoToken is returned when the connection request carries no token.
	ErrNoToken = errors.New("no token supplied")
	// ErrUserNotFound is returned when the token's subject no longer resolves
	// to an active user.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoOrganization is returned when the resolved user has no organization;
	// tenant-scoped streams require one.
	ErrNoOrganization = errors.New("user has no organization")
)

// SessionVerifier verifies a token and returns its claims. Implemented by the
// session service; it is the single choke point for trust decisions.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*security.SessionClaims, error)
}

// UserResolver resolves users by ID. Returns nil, nil when not found.
type UserResolver interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
}

// OrgResolver resolves organizations by ID. Returns nil, nil when not found.
type OrgResolver interface {
	FindByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// Authenticator authenticates an inbound persistent-connection request.
// Each attempt moves Pending -> Authenticated | Rejected; one failure
// terminates the attempt with no retries — the caller must reconnect with a
// fresh token.
type Authenticator struct {
	sessions SessionVerifier
	users    UserResolver
	orgs     OrgResolver
}

// NewAuthenticator returns an Authenticator using the given verifier and user
// store. orgs may be nil to skip the org liveness check.
func NewAuthenticator(sessions SessionVerifier, users UserResolver, orgs OrgResolver) *Authenticator {
	return &Authenticator{sessions: sessions, users: users, orgs: orgs}
}

// Authenticate verifies the declared token and produces the connection's
// Identity. Failures, in order checked: ErrNoToken for a missing token; the
// verifier's typed error; security.ErrTokenInvalid for a non-access token
// (refresh tokens must never open interactive sessions); ErrUserNotFound when
// the subject no longer resolves; ErrNoOrganization when the user lacks a
// tenant or the tenant is no longer active.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}
	claims, err := a.sessions.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if claims.TokenType != security.TokenTypeAccess {
		return Identity{}, security.ErrTokenInvalid
	}
	user, err := a.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return Identity{}, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return Identity{}, ErrUserNotFound
	}
	if user.OrgID == "" {
		return Identity{}, ErrNoOrganization
	}
	if a.orgs != nil {
		org, err := a.orgs.FindByID(ctx, user.OrgID)
		if err != nil {
			return Identity{}, err
		}
		if org == nil || org.Status != orgdomain.OrgStatusActive {
			return Identity{}, ErrNoOrganization
		}
	}
	// The identity snapshot is taken from the live user record at connection
	// time and stays fixed for the connection's lifetime.
	return Identity{UserID: user.ID, OrgID: user.OrgID, Role: string(user.Role)}, nil
}
