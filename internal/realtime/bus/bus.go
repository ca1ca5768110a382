package bus

import (
	"context"

	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
)

// Bus fans realtime messages out across service instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

// Emitter publishes to the bus; a forwarder on every instance feeds its local hub.
type Emitter struct {
	Bus Bus
	Log *logger.Logger
}

func (e *Emitter) Emit(ctx context.Context, msg realtime.Message) {
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("realtime publish failed", "event", msg.Event, "error", err)
	}
}
