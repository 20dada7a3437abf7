package repository

import (
	"context"
	"database/sql"

	"scrimbase/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository using the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists one audit log entry.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditLog) error {
	userID := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, org_id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OrgID, userID, e.Action, e.Resource, e.IP, e.Metadata, e.CreatedAt,
	)
	return err
}
