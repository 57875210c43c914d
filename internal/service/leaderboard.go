package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinoosan/stealth/internal/data"
	"github.com/tinoosan/stealth/internal/metrics"
	"github.com/tinoosan/stealth/internal/repo"
	"github.com/tinoosan/stealth/internal/reqid"
)

// Leaderboard records game scores and serves the ranked view.
type Leaderboard interface {
	Submit(ctx context.Context, rec *data.ScoreRecord) (string, error)
	Top(ctx context.Context, limit int) ([]data.LeaderboardEntry, error)
}

// Publisher receives every accepted score. Publish must not block.
type Publisher interface {
	Publish(entry data.LeaderboardEntry)
}

type LeaderboardOption func(*leaderboard)

// WithPublisher fans accepted scores out to p.
func WithPublisher(p Publisher) LeaderboardOption {
	return func(l *leaderboard) { l.pub = p }
}

// WithMaxLimit caps the limit Top accepts. Zero leaves it unbounded.
func WithMaxLimit(n int) LeaderboardOption {
	return func(l *leaderboard) { l.maxLimit = n }
}

type leaderboard struct {
	store interface {
		repo.DocumentReader
		repo.DocumentWriter
	}
	pub      Publisher
	maxLimit int
	log      *slog.Logger
}

func NewLeaderboard(store repo.DocumentStore, log *slog.Logger, opts ...LeaderboardOption) Leaderboard {
	if log == nil {
		log = slog.Default()
	}
	l := &leaderboard{store: store, log: log}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *leaderboard) Submit(ctx context.Context, rec *data.ScoreRecord) (string, error) {
	if rec == nil {
		metrics.ScoreSubmissions.WithLabelValues("invalid").Inc()
		return "", &data.ValidationError{Field: "body", Reason: "is required"}
	}
	if err := rec.Validate(); err != nil {
		metrics.ScoreSubmissions.WithLabelValues("invalid").Inc()
		return "", err
	}

	id, err := l.store.Create(ctx, data.ScoreCollection, rec)
	if err != nil {
		metrics.ScoreSubmissions.WithLabelValues("failed").Inc()
		reqid.Logger(ctx, l.log).Error("score create failed", "err", err)
		return "", storageErr(err)
	}
	metrics.ScoreSubmissions.WithLabelValues("accepted").Inc()

	if l.pub != nil {
		l.pub.Publish(rec.Entry())
	}
	return id, nil
}

func (l *leaderboard) Top(ctx context.Context, limit int) ([]data.LeaderboardEntry, error) {
	if limit < 1 {
		return nil, &data.ValidationError{Field: "limit", Reason: "must be greater than or equal to 1"}
	}
	if l.maxLimit > 0 && limit > l.maxLimit {
		return nil, &data.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be less than or equal to %d", l.maxLimit)}
	}

	docs, err := l.store.Query(ctx, data.ScoreCollection, nil)
	if err != nil {
		metrics.LeaderboardQueries.WithLabelValues("failed").Inc()
		reqid.Logger(ctx, l.log).Error("score query failed", "err", err)
		return nil, storageErr(err)
	}
	metrics.LeaderboardQueries.WithLabelValues("ok").Inc()
	return rank(docs, limit), nil
}

func storageErr(err error) error {
	if errors.Is(err, data.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", data.ErrStorageUnavailable, err)
}
