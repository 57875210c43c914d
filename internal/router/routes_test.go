package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	v1 "github.com/tinoosan/stealth/api/v1"
	"github.com/tinoosan/stealth/internal/metrics"
	"github.com/tinoosan/stealth/internal/repo"
	"github.com/tinoosan/stealth/internal/service"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestRouter(ready Pinger, origins []string) http.Handler {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repo.NewInMemoryStore()
	h := v1.NewHandler(l, v1.Services{
		Leaderboard: service.NewLeaderboard(store, l),
		Diagnostics: service.NewDiagnostics(store, service.DiagnosticsEnv{}),
	}, 20)
	return New(l, h, nil, ready, origins)
}

func TestHealthzOK(t *testing.T) {
	r := newTestRouter(fakePinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ready", nil, http.StatusOK},
		{"store down", errors.New("nope"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(fakePinger{err: tt.err}, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMetricsEndpointEmitsFamilies(t *testing.T) {
	metrics.Register()
	metrics.RetrievalJobs.WithLabelValues("streamed").Inc()
	metrics.EngineLatency.WithLabelValues("yt-dlp").Observe(2)
	metrics.ActiveRetrievals.Set(0)

	r := newTestRouter(fakePinger{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, fam := range []string{
		"stealth_retrieval_jobs_total",
		"stealth_engine_fetch_seconds_count",
		"stealth_active_retrievals",
	} {
		if !strings.Contains(body, fam) {
			t.Fatalf("missing %s in metrics", fam)
		}
	}
}

func TestCORS(t *testing.T) {
	r := newTestRouter(fakePinger{}, []string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/api/score", nil)
	req.Header.Set("Origin", "https://game.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://game.example" {
		t.Fatalf("Access-Control-Allow-Origin=%q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentials not allowed")
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	r := newTestRouter(fakePinger{}, []string{"https://ok.example"})

	req := httptest.NewRequest(http.MethodGet, "/api/hello", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected Access-Control-Allow-Origin=%q", got)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequestIDOnUnmatchedRoute(t *testing.T) {
	r := newTestRouter(fakePinger{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID on 404")
	}
}
