package repository

import (
	"context"

	"scrimbase/backend/internal/organization/domain"
)

// Repository is the organization store.
type Repository interface {
	// FindByID returns the organization for id, or nil if not found.
	FindByID(ctx context.Context, id string) (*domain.Org, error)
	// Create persists the organization. The org must have ID set.
	Create(ctx context.Context, o *domain.Org) error
}
