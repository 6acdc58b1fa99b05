package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    APILatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "brentshift",
            Subsystem: "api",
            Name:      "latency_seconds",
            Help:      "Latency of analysis API endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    APIErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "brentshift",
            Subsystem: "api",
            Name:      "errors_total",
            Help:      "Errors by analysis API endpoint",
        },
        []string{"endpoint"},
    )

    APICache = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "brentshift",
            Subsystem: "api",
            Name:      "cache_events_total",
            Help:      "Response cache hits and misses by endpoint",
        },
        []string{"endpoint", "outcome"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(APILatency, APIErrors, APICache)
    })
}
