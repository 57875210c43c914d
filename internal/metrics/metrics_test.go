package metrics

import (
    "strings"
    "testing"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndGauges(t *testing.T) {
    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors()...)

    RetrievalJobs.WithLabelValues("done").Inc()
    RetrievalJobs.WithLabelValues("rejected").Add(2)
    ActiveRetrievals.Set(3)

    expectedJobs := `# HELP stealth_retrieval_jobs_total Retrieval jobs by terminal state.
# TYPE stealth_retrieval_jobs_total counter
stealth_retrieval_jobs_total{outcome="done"} 1
stealth_retrieval_jobs_total{outcome="rejected"} 2
`
    if err := testutil.CollectAndCompare(RetrievalJobs, strings.NewReader(expectedJobs)); err != nil {
        t.Fatalf("unexpected retrieval jobs metric: %v", err)
    }

    expectedGauge := `# HELP stealth_active_retrievals Retrieval jobs currently holding a scratch directory.
# TYPE stealth_active_retrievals gauge
stealth_active_retrievals 3
`
    if err := testutil.CollectAndCompare(ActiveRetrievals, strings.NewReader(expectedGauge)); err != nil {
        t.Fatalf("unexpected active retrievals gauge: %v", err)
    }
}

func TestEngineLatencyHistogram(t *testing.T) {
    // Use a fresh histogram to avoid cross-test contamination
    EngineLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "stealth",
            Name:      "engine_fetch_seconds",
            Help:      "Time spent in the retrieval engine per fetch.",
            Buckets:   []float64{1, 10},
        },
        []string{"engine"},
    )

    EngineLatency.WithLabelValues("yt-dlp").Observe(0.5)
    EngineLatency.WithLabelValues("yt-dlp").Observe(4)

    expected := `# HELP stealth_engine_fetch_seconds Time spent in the retrieval engine per fetch.
# TYPE stealth_engine_fetch_seconds histogram
stealth_engine_fetch_seconds_bucket{engine="yt-dlp",le="1"} 1
stealth_engine_fetch_seconds_bucket{engine="yt-dlp",le="10"} 2
stealth_engine_fetch_seconds_bucket{engine="yt-dlp",le="+Inf"} 2
stealth_engine_fetch_seconds_sum{engine="yt-dlp"} 4.5
stealth_engine_fetch_seconds_count{engine="yt-dlp"} 2
`
    if err := testutil.CollectAndCompare(EngineLatency, strings.NewReader(expected)); err != nil {
        t.Fatalf("unexpected histogram: %v", err)
    }
}

func TestRegisterIsIdempotent(t *testing.T) {
    Register()
    Register()
}
