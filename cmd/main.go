package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/tinoosan/stealth/api/v1"
	"github.com/tinoosan/stealth/internal/config"
	"github.com/tinoosan/stealth/internal/downloadcfg"
	"github.com/tinoosan/stealth/internal/downloader/ytdlp"
	"github.com/tinoosan/stealth/internal/feed"
	"github.com/tinoosan/stealth/internal/logging"
	"github.com/tinoosan/stealth/internal/metrics"
	"github.com/tinoosan/stealth/internal/repo"
	"github.com/tinoosan/stealth/internal/router"
	"github.com/tinoosan/stealth/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stealth:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l, closeLog, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return err
	}
	defer closeLog.Close()
	slog.SetDefault(l)

	metrics.Register()

	store, closeStore := openStore(cfg, l)
	defer closeStore()

	engine := ytdlp.NewAdapter(cfg.EngineBinary)
	engine.SetLogger(l)

	hub := feed.NewHub(l, feed.DefaultBuffer, cfg.CORSOrigins)

	h := v1.NewHandler(l, v1.Services{
		Leaderboard: service.NewLeaderboard(store, l,
			service.WithPublisher(hub),
			service.WithMaxLimit(cfg.MaxLeaderboardLimit)),
		Retrieval: service.NewRetrieval(engine, service.RetrievalConfig{
			ScratchRoot:  cfg.ScratchRoot,
			Hosts:        downloadcfg.NewHostPattern(cfg.AllowedHosts),
			Policy:       cfg.FormatPolicy(),
			FetchTimeout: cfg.FetchTimeout(),
		}, l),
		Diagnostics: service.NewDiagnostics(store, service.DiagnosticsEnv{
			DatabaseURLSet:  cfg.DatabaseURL != "",
			DatabaseNameSet: cfg.DatabaseName != "",
		}),
	}, cfg.DefaultLeaderboardLimit)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(l, h, hub, store, cfg.CORSOrigins),
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("starting stealth API", "addr", server.Addr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		l.Info("received terminate, graceful shutdown", "signal", sig.String())
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
	}

	hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		l.Error("shutdown", "err", err)
		return err
	}
	return nil
}

// openStore selects the persistence gateway. A missing or unreachable
// database leaves the service running with storage reported unavailable.
func openStore(cfg *config.Config, l *slog.Logger) (repo.DocumentStore, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		l.Warn("using in-memory storage; scores are lost on restart")
		return repo.NewInMemoryStore(), func() {}
	}
	if cfg.DatabaseURL == "" {
		l.Warn("DATABASE_URL not set; storage unavailable")
		return repo.Unavailable{Cause: errors.New("DATABASE_URL not set")}, func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pg, err := repo.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		l.Error("database connect failed; storage unavailable", "err", err)
		return repo.Unavailable{Cause: err}, func() {}
	}
	l.Info("connected to database", "database", pg.Name())
	return pg, func() {
		if err := pg.Close(); err != nil {
			l.Error("close database", "err", err)
		}
	}
}
