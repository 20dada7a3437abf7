package repository

import (
	"context"
	"database/sql"
	"fmt"

	"scrimbase/backend/internal/message/domain"
	"scrimbase/backend/internal/tenant"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a message repository using the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the message. The context must carry a tenant scope whose org
// matches the message; this is defense-in-depth on top of the authorizer's
// checks, so a mismatch is treated as a programming error and rejected.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Message) error {
	scope, err := tenant.RequireScope(ctx)
	if err != nil {
		return err
	}
	if scope.OrgID != m.OrgID {
		return fmt.Errorf("message org %q does not match tenant scope %q", m.OrgID, scope.OrgID)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	recipient := sql.NullString{String: m.RecipientID, Valid: m.RecipientID != ""}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, org_id, sender_id, recipient_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.OrgID, m.SenderID, recipient, m.Content, m.CreatedAt,
	)
	return err
}
