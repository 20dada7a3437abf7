package policy

import (
	"context"
	"errors"
	"testing"
)

type mockPolicyRepo struct {
	policies map[string]*ChannelPolicy
	err      error
}

var _ Repository = (*mockPolicyRepo)(nil)

func (m *mockPolicyRepo) FindByOrg(ctx context.Context, orgID string) (*ChannelPolicy, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.policies[orgID], nil
}

func (m *mockPolicyRepo) Upsert(ctx context.Context, p *ChannelPolicy) error {
	return nil
}

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e := NewOPAEvaluator(nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{})
	ctx := context.Background()

	for _, role := range []string{"owner", "manager", "coach", "player", "analyst"} {
		for _, channel := range []string{"team", "direct"} {
			allowed, err := e.AllowSend(ctx, "org-1", role, channel)
			if err != nil {
				t.Fatalf("AllowSend(%s, %s): %v", role, channel, err)
			}
			if !allowed {
				t.Errorf("AllowSend(%s, %s) = false, want true", role, channel)
			}
		}
	}

	allowed, err := e.AllowSend(ctx, "org-1", "intruder", "team")
	if err != nil {
		t.Fatalf("AllowSend: %v", err)
	}
	if allowed {
		t.Error("unknown role allowed by default policy")
	}
}

func TestOPAEvaluator_OrgOverride(t *testing.T) {
	// Override: only coaches may post to the team stream.
	override := `package scrimbase.channel

default allow_send = false

allow_send if {
	input.channel == "team"
	input.sender.role == "coach"
}

allow_send if {
	input.channel == "direct"
}
`
	repo := &mockPolicyRepo{policies: map[string]*ChannelPolicy{
		"org-1": {OrgID: "org-1", Rego: override},
	}}
	e := NewOPAEvaluator(repo)
	ctx := context.Background()

	allowed, err := e.AllowSend(ctx, "org-1", "coach", "team")
	if err != nil {
		t.Fatalf("AllowSend: %v", err)
	}
	if !allowed {
		t.Error("coach denied by override")
	}

	allowed, err = e.AllowSend(ctx, "org-1", "player", "team")
	if err != nil {
		t.Fatalf("AllowSend: %v", err)
	}
	if allowed {
		t.Error("player allowed to post to team despite override")
	}

	allowed, err = e.AllowSend(ctx, "org-1", "player", "direct")
	if err != nil {
		t.Fatalf("AllowSend: %v", err)
	}
	if !allowed {
		t.Error("player denied direct send by override")
	}

	// Other orgs are untouched by org-1's override.
	allowed, err = e.AllowSend(ctx, "org-2", "player", "team")
	if err != nil {
		t.Fatalf("AllowSend: %v", err)
	}
	if !allowed {
		t.Error("override leaked to another org")
	}
}

func TestOPAEvaluator_BrokenOverrideFallsBack(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string]*ChannelPolicy{
		"org-1": {OrgID: "org-1", Rego: "package scrimbase.channel\n\nnot valid rego"},
	}}
	e := NewOPAEvaluator(repo)

	allowed, err := e.AllowSend(context.Background(), "org-1", "player", "team")
	if err != nil {
		t.Fatalf("AllowSend should fall back, got error: %v", err)
	}
	if !allowed {
		t.Error("fallback default denied a recognized role")
	}
}

func TestOPAEvaluator_RepoErrorUsesDefault(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{err: errors.New("database down")})

	allowed, err := e.AllowSend(context.Background(), "org-1", "player", "team")
	if err != nil {
		t.Fatalf("AllowSend: %v", err)
	}
	if !allowed {
		t.Error("repo failure should fall back to default policy")
	}
}
