package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mulmoprep_fetches_total",
		Help: "Reference fetches by outcome (ok, http_error, unsupported, error).",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mulmoprep_fetch_duration_seconds",
		Help:    "Time spent fetching and extracting reference content.",
		Buckets: prometheus.DefBuckets,
	})
)
