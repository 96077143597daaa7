package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(modelCallsLatencyMs, conversationRounds)
}

var modelCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "model_calls_latency_ms",
		Help:    "Model call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"provider", "success"},
)

var conversationRounds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "conversation_rounds",
		Help:    "Tool-calling rounds used per job before a final answer.",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	},
)

func ObserveModelCall(provider string, latencyMs int, success bool) {
	modelCallsLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func ObserveRounds(n int) { conversationRounds.Observe(float64(n)) }
