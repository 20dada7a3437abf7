package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"scrimbase/backend/internal/audit/domain"
	auditrepo "scrimbase/backend/internal/audit/repository"
)

// SentinelOrgID is the org_id used for audit events that have no org
// (e.g. login_failure, connection rejected before an identity exists).
const SentinelOrgID = "_system"

// Actions recorded by the auth and realtime code paths.
const (
	ActionLoginSuccess       = "login_success"
	ActionLoginFailure       = "login_failure"
	ActionLogout             = "logout"
	ActionTokenRefresh       = "token_refresh"
	ActionConnectionOpened   = "connection_opened"
	ActionConnectionRejected = "connection_rejected"
	ActionSubscriptionOpened = "subscription_opened"
	ActionSubscriptionDenied = "subscription_denied"
	ActionMessageRejected    = "message_rejected"
)

// IPExtractor returns the client IP for the current request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
