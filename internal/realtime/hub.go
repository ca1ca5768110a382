package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type Event string

const (
	EventApplicationStatusChanged Event = "ApplicationStatusChanged"
	EventPotentialScored          Event = "PotentialScored"
	EventDispatchDead             Event = "DispatchDead"
)

// ChannelAll receives every event. Per-application channels use ApplicationChannel.
const ChannelAll = "triage"

func ApplicationChannel(applicationID uuid.UUID) string {
	return "application:" + applicationID.String()
}

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan Message
	done     chan struct{}
	once     sync.Once
}

type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*Client]bool
	heartbeat     time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "RealtimeHub"),
		subscriptions: make(map[string]map[*Client]bool),
		heartbeat:     15 * time.Second,
	}
}

func (h *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan Message, 16),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Subscribe(c *Client, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Channels[channel] = true
	subs, ok := h.subscriptions[channel]
	if !ok {
		subs = make(map[*Client]bool)
		h.subscriptions[channel] = subs
	}
	subs[c] = true
	h.log.Debug("client subscribed", "client_id", c.ID, "channel", channel)
}

func (h *Hub) removeLocked(c *Client) {
	for ch := range c.Channels {
		if subs, ok := h.subscriptions[ch]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.subscriptions, ch)
			}
		}
	}
	c.Channels = make(map[string]bool)
}

// Broadcast delivers msg to its channel and to ChannelAll. Slow clients drop messages.
func (h *Hub) Broadcast(msg Message) {
	if msg.Channel == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]bool)
	for _, ch := range []string{msg.Channel, ChannelAll} {
		for c := range h.subscriptions[ch] {
			if seen[c] {
				continue
			}
			seen[c] = true
			select {
			case c.Outbound <- msg:
			default:
				h.log.Warn("dropping realtime message; outbound buffer full", "client_id", c.ID)
			}
		}
	}
}

func (h *Hub) CloseClient(c *Client) {
	c.once.Do(func() {
		h.mu.Lock()
		h.removeLocked(c)
		close(c.done)
		close(c.Outbound)
		h.mu.Unlock()
	})
}

// ServeHTTP streams the client's messages as server-sent events until the
// request ends or the client is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, c *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-c.Outbound:
			if !ok {
				return
			}
			raw, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("failed to marshal realtime message", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw)
			flusher.Flush()
		}
	}
}
