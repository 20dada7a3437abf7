// Package realtime authenticates persistent connections and fans messages out
// to their bound streams.
package realtime

// Identity is the verified {user, organization, role} tuple attached to an
// authenticated connection. It is derived server-side from the verified token,
// never from client-declared parameters, and is immutable for the connection's
// lifetime: later changes to the user record do not retroactively alter an
// already-open connection.
type Identity struct {
	UserID string
	OrgID  string
	Role   string
}
