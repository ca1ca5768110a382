package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
)

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(logger.Nop(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	b, err := NewRedisBus(logger.Nop(), RedisConfig{Addr: addr, Channel: "triage-test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan realtime.Message, 1)
	if err := b.StartForwarder(ctx, func(m realtime.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := realtime.Message{Channel: realtime.ChannelAll, Event: realtime.EventDispatchDead}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Event != want.Event || m.Channel != want.Channel {
			t.Fatalf("forwarded: want=%+v got=%+v", want, m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for forwarded message")
	}
}
