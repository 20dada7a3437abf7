package repository

import (
	"context"

	"scrimbase/backend/internal/message/domain"
)

// Repository persists chat messages. Create is invoked only after the channel
// authorizer has approved the send.
type Repository interface {
	Create(ctx context.Context, m *domain.Message) error
}
