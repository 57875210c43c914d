package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tinoosan/stealth/internal/data"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newHub() *Hub { return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), 1, nil) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishDoesNotBlock(t *testing.T) {
	h := newHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.Publish(data.LeaderboardEntry{Name: "a"})
		h.Publish(data.LeaderboardEntry{Name: "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	m := <-ch
	if m.Type != "score" || m.Entry.Name != "a" {
		t.Fatalf("got %+v", m)
	}
	select {
	case m := <-ch:
		t.Fatalf("expected dropped message, got %+v", m)
	default:
	}
}

func TestHub_CancelAndClose(t *testing.T) {
	h := newHub()
	_, cancel := h.Subscribe()
	ch2, _ := h.Subscribe()
	if h.Subscribers() != 2 {
		t.Fatalf("subscribers=%d", h.Subscribers())
	}
	cancel()
	cancel()
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers=%d", h.Subscribers())
	}

	h.Close()
	if _, ok := <-ch2; ok {
		t.Fatal("channel not closed by Close")
	}
	ch3, _ := h.Subscribe()
	if _, ok := <-ch3; ok {
		t.Fatal("subscribe after Close should yield closed channel")
	}
	h.Publish(data.LeaderboardEntry{Name: "late"})
}

func TestHub_ServeHTTP(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitFor(t, func() bool { return h.Subscribers() == 1 })
	h.Publish(data.LeaderboardEntry{Name: "Ana", Points: 100, Level: 3, DurationMS: 5000})

	var m Message
	if err := wsjson.Read(ctx, conn, &m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "score" || m.Entry.Name != "Ana" || m.Entry.Points != 100 {
		t.Fatalf("got %+v", m)
	}

	h.Close()
	_, _, err = conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("close status=%v err=%v", websocket.CloseStatus(err), err)
	}
}
