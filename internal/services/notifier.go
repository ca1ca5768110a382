package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/realtime"
)

// StatusNotifier announces committed state changes. Delivery is best effort.
type StatusNotifier struct {
	emit realtime.Emitter
}

func NewStatusNotifier(emit realtime.Emitter) *StatusNotifier {
	if emit == nil {
		emit = realtime.NopEmitter{}
	}
	return &StatusNotifier{emit: emit}
}

func (n *StatusNotifier) ApplicationStatusChanged(ctx context.Context, id uuid.UUID, from, to types.ApplicationStatus) {
	n.emit.Emit(ctx, realtime.Message{
		Channel: realtime.ApplicationChannel(id),
		Event:   realtime.EventApplicationStatusChanged,
		Data:    map[string]any{"application_id": id, "from": from, "status": to},
	})
}

func (n *StatusNotifier) PotentialScored(ctx context.Context, p *types.Potential, criteriaCount int) {
	channel := realtime.ChannelAll
	if p.ApplicationID != nil {
		channel = realtime.ApplicationChannel(*p.ApplicationID)
	}
	n.emit.Emit(ctx, realtime.Message{
		Channel: channel,
		Event:   realtime.EventPotentialScored,
		Data: map[string]any{
			"potential_id":   p.ID,
			"avg_score":      p.AvgScore,
			"status":         p.Status,
			"criteria_count": criteriaCount,
		},
	})
}

func (n *StatusNotifier) DispatchDead(ctx context.Context, intent *types.DispatchIntent) {
	n.emit.Emit(ctx, realtime.Message{
		Channel: realtime.ApplicationChannel(intent.ApplicationID),
		Event:   realtime.EventDispatchDead,
		Data: map[string]any{
			"dispatch_id":      intent.ID,
			"kind":             intent.Kind,
			"attempts":         intent.Attempts,
			"last_status_code": intent.LastStatusCode,
		},
	})
}
