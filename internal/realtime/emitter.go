package realtime

import "context"

type Emitter interface {
	Emit(ctx context.Context, msg Message)
}

type HubEmitter struct{ Hub *Hub }

func (e *HubEmitter) Emit(ctx context.Context, msg Message) {
	e.Hub.Broadcast(msg)
}

// NopEmitter drops everything.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Message) {}
