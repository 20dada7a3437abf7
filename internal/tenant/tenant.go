// Package tenant carries the authenticated identity's tenant scope through one
// unit of work (an HTTP request or a WebSocket connection). The scope lives on
// the unit's context.Context, never in process-wide state, so concurrent
// requests cannot observe each other's tenant. It is defense-in-depth layered
// on top of explicit org filters in storage queries, not a replacement for them.
package tenant

import (
	"context"
	"errors"
)

// ErrNoScope is returned by RequireScope when the context carries no tenant scope.
var ErrNoScope = errors.New("no tenant scope on context")

// Scope is the authenticated {organization, user, role} tuple for one unit of work.
type Scope struct {
	OrgID  string
	UserID string
	Role   string
}

type contextKey struct{}

var scopeKey contextKey

// WithScope returns a context carrying the tenant scope. Install it immediately
// after authentication succeeds; the scope ends with the context's unit of work.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext returns the tenant scope and true if set; otherwise a zero Scope and false.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey).(Scope)
	return s, ok
}

// RequireScope returns the tenant scope or ErrNoScope when absent or missing an org.
// Storage-layer code calls this before touching tenant-owned tables.
func RequireScope(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey).(Scope)
	if !ok || s.OrgID == "" {
		return Scope{}, ErrNoScope
	}
	return s, nil
}
