package repository

import (
	"context"

	"scrimbase/backend/internal/user/domain"
)

// Repository is the user store consumed by the session service and the
// connection authenticator.
type Repository interface {
	// FindByID returns the user for id, or nil if not found.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail returns the user with the given email, or nil if not found.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create persists the user. The user must have ID set.
	Create(ctx context.Context, u *domain.User) error
}
