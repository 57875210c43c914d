// Package feed fans accepted leaderboard scores out to websocket subscribers.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/stealth/internal/data"
	"github.com/tinoosan/stealth/internal/metrics"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	// DefaultBuffer is the per-subscriber queue length.
	DefaultBuffer = 16
	writeTimeout  = 10 * time.Second
)

// Message is one frame sent to subscribers.
type Message struct {
	Type  string                `json:"type"`
	Entry data.LeaderboardEntry `json:"entry"`
}

// Hub delivers each published score to every subscriber. Publish never
// blocks: a subscriber whose queue is full misses the message.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan Message]struct{}
	closed  bool
	buffer  int
	origins []string
	log     *slog.Logger
}

// NewHub returns a hub accepting websocket upgrades from origins; nil or
// "*" accepts any origin.
func NewHub(log *slog.Logger, buffer int, origins []string) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Hub{subs: make(map[chan Message]struct{}), buffer: buffer, origins: origins, log: log}
}

func (h *Hub) Publish(entry data.LeaderboardEntry) {
	msg := Message{Type: "score", Entry: entry}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.log.Debug("feed subscriber full, dropping message")
		}
	}
}

// Subscribe registers a queue. The returned cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, h.buffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	metrics.FeedSubscribers.Inc()
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(ch) })
	}
}

func (h *Hub) remove(ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
	metrics.FeedSubscribers.Dec()
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
		metrics.FeedSubscribers.Dec()
	}
}

// ServeHTTP upgrades the request and streams messages until the client
// leaves or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn("feed upgrade failed", "err", err)
		return
	}
	log := h.log.With("subscriber_id", uuid.NewString())
	log.Info("feed subscriber connected")

	// Client frames are ignored; ctx ends when the client closes.
	ctx := conn.CloseRead(r.Context())
	msgs, cancel := h.Subscribe()
	defer cancel()

	status, reason := websocket.StatusNormalClosure, ""
	defer func() {
		_ = conn.Close(status, reason)
		log.Info("feed subscriber disconnected")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				status, reason = websocket.StatusGoingAway, "shutting down"
				return
			}
			if err := write(ctx, conn, m); err != nil {
				log.Debug("feed write failed", "err", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, m Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, m)
}
