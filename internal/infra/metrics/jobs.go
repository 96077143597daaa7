package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(chatJobsTotal, jobsInFlight, queueDepth, jobDurationMs)
}

var chatJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_jobs_total",
		Help: "Chat jobs by terminal outcome.",
	},
	[]string{"status"}, // completed | retried | dead_letter | dropped | no_reply
)

var jobsInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "chat_jobs_in_flight",
		Help: "Jobs currently leased by workers.",
	},
)

var queueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "chat_queue_depth",
		Help: "Jobs ready for delivery.",
	},
)

var jobDurationMs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "chat_job_duration_ms",
		Help:    "End-to-end job handling time in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	},
)

func IncJob(status string) { chatJobsTotal.WithLabelValues(norm(status)).Inc() }

func JobStarted()  { jobsInFlight.Inc() }
func JobFinished() { jobsInFlight.Dec() }

func SetQueueDepth(n int64) { queueDepth.Set(float64(n)) }

func ObserveJobDuration(ms int) { jobDurationMs.Observe(float64(ms)) }
