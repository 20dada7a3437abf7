// Package channel decides who may subscribe to and send on a stream. All
// decisions are derived from the connection's verified identity; client
// parameters only select which channel, never which tenant.
package channel

import (
	"strings"

	"scrimbase/backend/internal/realtime"
)

// Subscription is a request to bind a connection to one stream. The two
// variants carry different authorization rules, so callers construct the
// concrete type rather than a kind string.
type Subscription interface {
	// StreamKey derives the stream key from the verified identity. It performs
	// no authorization; Authorizer does.
	StreamKey(id realtime.Identity) string
	kind() string
}

// TeamSubscription binds to the caller's organization-wide stream. The key is
// derived solely from Identity.OrgID; there is nothing a client can declare to
// land on another tenant's stream.
type TeamSubscription struct{}

func (TeamSubscription) StreamKey(id realtime.Identity) string {
	return TeamStreamKey(id.OrgID)
}

func (TeamSubscription) kind() string { return "team" }

// DirectSubscription binds to a two-party stream between the caller and
// TargetID within the caller's organization.
type DirectSubscription struct {
	TargetID string
}

func (s DirectSubscription) StreamKey(id realtime.Identity) string {
	return DirectStreamKey(id.OrgID, id.UserID, s.TargetID)
}

func (DirectSubscription) kind() string { return "direct" }

// TeamStreamKey is the stream key for an organization's team channel.
func TeamStreamKey(orgID string) string {
	return "team:" + orgID
}

// DirectStreamKey is the stream key for a direct channel between two users of
// one organization. The user pair is ordered lexicographically so both parties
// derive the identical key regardless of who initiates.
func DirectStreamKey(orgID, a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return "dm:" + orgID + ":" + a + ":" + b
}
