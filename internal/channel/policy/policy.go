// Package policy evaluates the per-organization channel send policy with OPA
// Rego. Organizations without an override run the embedded default policy.
package policy

import (
	"context"
	"time"
)

// ChannelPolicy is one organization's Rego override for channel sends.
type ChannelPolicy struct {
	OrgID     string
	Rego      string
	UpdatedAt time.Time
}

// Repository loads channel policy overrides. FindByOrg returns nil, nil when
// the org has no override.
type Repository interface {
	FindByOrg(ctx context.Context, orgID string) (*ChannelPolicy, error)
	Upsert(ctx context.Context, p *ChannelPolicy) error
}
