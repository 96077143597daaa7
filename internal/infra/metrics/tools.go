package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(toolInvocationsTotal) }

var toolInvocationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tool_invocations_total",
		Help: "Tool dispatcher invocations by tool name and outcome.",
	},
	[]string{"tool", "outcome"}, // ok | not_found | error | unknown_tool
)

func IncTool(tool, outcome string) {
	toolInvocationsTotal.WithLabelValues(norm(tool), norm(outcome)).Inc()
}
