package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mulmoprep_llm_requests_total",
		Help: "LLM completions by provider and outcome.",
	}, []string{"provider", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mulmoprep_llm_request_duration_seconds",
		Help:    "LLM completion latency including retries.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"provider"})
)
