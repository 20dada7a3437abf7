package policy

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a channel policy repository over db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByOrg returns the org's policy override, or nil if the org has none.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByOrg(ctx context.Context, orgID string) (*ChannelPolicy, error) {
	row := r.db.QueryRowContext(ctx, `SELECT org_id, rego, updated_at FROM channel_policies WHERE org_id = $1`, orgID)
	var p ChannelPolicy
	if err := row.Scan(&p.OrgID, &p.Rego, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert writes the org's policy override, replacing any existing one.
func (r *PostgresRepository) Upsert(ctx context.Context, p *ChannelPolicy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channel_policies (org_id, rego, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id) DO UPDATE SET rego = EXCLUDED.rego, updated_at = EXCLUDED.updated_at`,
		p.OrgID, p.Rego, p.UpdatedAt,
	)
	return err
}
