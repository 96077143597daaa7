package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(deliveriesTotal) }

var deliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wa_deliveries_total",
		Help: "Outbound WhatsApp deliveries by status.",
	},
	[]string{"status"}, // sent | failed
)

func IncDelivery(status string) { deliveriesTotal.WithLabelValues(norm(status)).Inc() }
