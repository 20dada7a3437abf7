// Package producer writes pipeline events to Kafka.
package producer

import (
	"context"

	"scrimbase/backend/internal/events"
)

// Producer emits pipeline events. Implementations must tolerate a nil
// receiver and nil events so callers can emit unconditionally.
type Producer interface {
	Emit(ctx context.Context, event *events.Event) error
	Close() error
}
