package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
    ScoreSubmissions = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "stealth",
            Name:      "score_submissions_total",
            Help:      "Score submissions by result (accepted, invalid, failed).",
        },
        []string{"result"},
    )

    LeaderboardQueries = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "stealth",
            Name:      "leaderboard_queries_total",
            Help:      "Leaderboard reads by result (ok, failed).",
        },
        []string{"result"},
    )

    RetrievalJobs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "stealth",
            Name:      "retrieval_jobs_total",
            Help:      "Retrieval jobs by terminal state.",
        },
        []string{"outcome"},
    )

    ActiveRetrievals = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "stealth",
            Name:      "active_retrievals",
            Help:      "Retrieval jobs currently holding a scratch directory.",
        },
    )

    EngineLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "stealth",
            Name:      "engine_fetch_seconds",
            Help:      "Time spent in the retrieval engine per fetch.",
            Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
        },
        []string{"engine"},
    )

    StreamedBytes = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "stealth",
            Name:      "streamed_bytes_total",
            Help:      "Bytes of retrieved media written to clients.",
        },
    )

    CleanupFailures = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "stealth",
            Name:      "scratch_cleanup_failures_total",
            Help:      "Scratch file or directory removals that failed.",
        },
    )

    FeedSubscribers = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "stealth",
            Name:      "feed_subscribers",
            Help:      "Connected live leaderboard subscribers.",
        },
    )
)

func collectors() []prometheus.Collector {
    return []prometheus.Collector{
        ScoreSubmissions, LeaderboardQueries, RetrievalJobs, ActiveRetrievals,
        EngineLatency, StreamedBytes, CleanupFailures, FeedSubscribers,
    }
}

// Register registers the service metrics into the default registry. It is
// safe to call more than once.
func Register() {
    for _, c := range collectors() {
        if err := prometheus.Register(c); err != nil {
            if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
                panic(err)
            }
        }
    }
}
