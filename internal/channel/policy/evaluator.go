package policy

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const sendQuery = "data.scrimbase.channel.allow_send"

// Default Rego policy: every recognized org role may send on both channel
// kinds. Unknown or empty roles are denied.
const defaultRegoPolicy = `package scrimbase.channel

known_roles := {"owner", "manager", "coach", "player", "analyst"}

default allow_send = false

allow_send if {
	input.channel == "team"
	input.sender.role in known_roles
}

allow_send if {
	input.channel == "direct"
	input.sender.role in known_roles
}
`

// OPAEvaluator evaluates channel send policies with in-process OPA Rego.
// Orgs with a stored override run their own module; everyone else runs the
// embedded default. A broken override fails closed back to the default.
type OPAEvaluator struct {
	policies Repository
}

// NewOPAEvaluator returns an OPA-based send policy. A nil repository means
// every org runs the default policy.
func NewOPAEvaluator(policies Repository) *OPAEvaluator {
	return &OPAEvaluator{policies: policies}
}

// HealthCheck verifies that the Rego engine can compile and evaluate the
// default policy. It does not touch the policy repository.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	input := buildInput("player", "team")
	allowed, err := evaluate(ctx, defaultRegoPolicy, input)
	if err != nil {
		return fmt.Errorf("default policy: %w", err)
	}
	if !allowed {
		return fmt.Errorf("default policy denied a baseline send")
	}
	return nil
}

// AllowSend decides whether role may send on the channel kind within orgID.
func (e *OPAEvaluator) AllowSend(ctx context.Context, orgID, role, channel string) (bool, error) {
	module := defaultRegoPolicy
	if e.policies != nil {
		override, err := e.policies.FindByOrg(ctx, orgID)
		if err != nil {
			log.Printf("channel policy: load override for org %s: %v", orgID, err)
		} else if override != nil && override.Rego != "" {
			module = override.Rego
		}
	}

	input := buildInput(role, channel)
	allowed, err := evaluate(ctx, module, input)
	if err != nil && module != defaultRegoPolicy {
		// Broken override: fall back to the default rather than blocking the org.
		log.Printf("channel policy: override for org %s failed, using default: %v", orgID, err)
		allowed, err = evaluate(ctx, defaultRegoPolicy, input)
	}
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func buildInput(role, channel string) map[string]interface{} {
	return map[string]interface{}{
		"channel": channel,
		"sender": map[string]interface{}{
			"role": role,
		},
	}
}

func evaluate(ctx context.Context, module string, input map[string]interface{}) (bool, error) {
	compiler, err := ast.CompileModules(map[string]string{"policy.rego": module})
	if err != nil {
		return false, fmt.Errorf("compile policy: %w", err)
	}
	q := rego.New(
		rego.Query(sendQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy query returned non-boolean %T", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}
