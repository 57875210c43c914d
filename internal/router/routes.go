package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v1 "github.com/tinoosan/stealth/api/v1"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New sets up the application routes and required middleware. feed serves
// the live leaderboard websocket; ready backs /readyz.
func New(logger *slog.Logger, h *v1.Handler, feed http.Handler, ready Pinger, corsOrigins []string) http.Handler {

	r := mux.NewRouter()
	r.Use(h.Log)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if ready != nil {
			if err := ready.Ping(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// GETs
	get := r.Methods("GET").Subrouter()
	get.HandleFunc("/", h.Root)
	get.HandleFunc("/test", h.Diagnostics)
	get.HandleFunc("/api/hello", h.Hello)
	get.HandleFunc("/api/leaderboard", h.Leaderboard)
	get.HandleFunc("/api/download", h.Download)
	if feed != nil {
		get.Handle("/api/leaderboard/live", feed)
	}

	// POSTs
	post := r.Methods("POST").Subrouter()
	post.HandleFunc("/api/score", h.SubmitScore)
	post.Use(v1.MiddlewareScoreValidation)

	return corsHandler(corsOrigins)(v1.RequestID(r))
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		// Echo the caller's origin; browsers refuse "*" with credentials.
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.Handler(opts)
}
