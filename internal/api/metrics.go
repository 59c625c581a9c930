package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backtestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isd_backtest_runs_total",
		Help: "Backtest runs by outcome.",
	}, []string{"status"})

	backtestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "isd_backtest_duration_seconds",
		Help:    "Wall time of a backtest including data loading.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isd_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
)
