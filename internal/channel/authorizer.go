package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	messagedomain "scrimbase/backend/internal/message/domain"
	"scrimbase/backend/internal/realtime"
	userdomain "scrimbase/backend/internal/user/domain"
)

var (
	// ErrSubscriptionRejected is returned when a subscription request fails
	// authorization. Rejection is terminal for the request; there is no
	// fallback stream.
	ErrSubscriptionRejected = errors.New("subscription rejected")
	// ErrContentRejected is returned when a message body fails validation or
	// cannot be accepted for the stream.
	ErrContentRejected = errors.New("content rejected")
	// ErrSendDenied is returned when the org's send policy denies the sender.
	ErrSendDenied = errors.New("send denied by policy")
)

// UserResolver resolves users by ID. Returns nil, nil when not found.
type UserResolver interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SendPolicy decides whether a role may send on a channel kind within an org.
type SendPolicy interface {
	AllowSend(ctx context.Context, orgID, role, channel string) (bool, error)
}

// Authorizer applies the channel rules: team streams are scoped to the
// caller's org, direct streams require a live same-org target, and message
// content is validated on every send. A nil policy means role checks are
// skipped.
type Authorizer struct {
	users  UserResolver
	policy SendPolicy
}

// NewAuthorizer returns an Authorizer over the given user store and send policy.
func NewAuthorizer(users UserResolver, policy SendPolicy) *Authorizer {
	return &Authorizer{users: users, policy: policy}
}

// AuthorizeSubscription authorizes sub for the identified caller and returns
// the stream key to bind. Team subscriptions require only that the identity
// carries an org. Direct subscriptions additionally require the target to
// exist, be active, share the caller's org, and differ from the caller.
func (a *Authorizer) AuthorizeSubscription(ctx context.Context, id realtime.Identity, sub Subscription) (string, error) {
	if id.OrgID == "" {
		return "", fmt.Errorf("%w: no organization", ErrSubscriptionRejected)
	}
	switch s := sub.(type) {
	case TeamSubscription:
		// Key derives from the verified org alone.
	case DirectSubscription:
		if err := a.checkDirectTarget(ctx, id, s.TargetID); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: unknown channel", ErrSubscriptionRejected)
	}
	return sub.StreamKey(id), nil
}

// AuthorizeSend authorizes one message send on sub and returns the stream key
// to publish to. The subscription rules are re-checked on every send: a direct
// target removed from the org between sends rejects the next message even
// though the original subscription succeeded. Content must be non-empty after
// trimming and at most MaxContentLength characters.
func (a *Authorizer) AuthorizeSend(ctx context.Context, id realtime.Identity, sub Subscription, content string) (string, error) {
	key, err := a.AuthorizeSubscription(ctx, id, sub)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty content", ErrContentRejected)
	}
	if utf8.RuneCountInString(content) > messagedomain.MaxContentLength {
		return "", fmt.Errorf("%w: content exceeds %d characters", ErrContentRejected, messagedomain.MaxContentLength)
	}
	if a.policy != nil {
		allowed, err := a.policy.AllowSend(ctx, id.OrgID, id.Role, sub.kind())
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", ErrSendDenied
		}
	}
	return key, nil
}

func (a *Authorizer) checkDirectTarget(ctx context.Context, id realtime.Identity, targetID string) error {
	if targetID == "" {
		return fmt.Errorf("%w: no recipient", ErrSubscriptionRejected)
	}
	if targetID == id.UserID {
		return fmt.Errorf("%w: cannot open a direct channel with yourself", ErrSubscriptionRejected)
	}
	target, err := a.users.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil || target.Status != userdomain.UserStatusActive {
		return fmt.Errorf("%w: recipient not found", ErrSubscriptionRejected)
	}
	// Org membership is checked against the live record, not the caller's
	// claim about the target.
	if target.OrgID != id.OrgID {
		return fmt.Errorf("%w: recipient not found", ErrSubscriptionRejected)
	}
	return nil
}
