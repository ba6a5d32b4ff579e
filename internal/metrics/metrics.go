package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for queue activity and API health
var (
	VotesCastTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdqueue_votes_cast_total",
			Help: "Total number of votes cast",
		},
	)

	VotesRetractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdqueue_votes_retracted_total",
			Help: "Total number of votes retracted",
		},
	)

	RequestsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdqueue_requests_created_total",
			Help: "Total number of song requests submitted",
		},
	)

	StatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdqueue_status_transitions_total",
			Help: "Total number of single-request status transitions",
		},
		[]string{"status"},
	)

	SweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdqueue_sweeps_total",
			Help: "Total number of bulk transitions",
		},
	)

	RequestsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdqueue_requests_deleted_total",
			Help: "Total number of hard-deleted requests",
		},
	)

	HTTPRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crowdqueue_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(VotesCastTotal)
	prometheus.MustRegister(VotesRetractedTotal)
	prometheus.MustRegister(RequestsCreatedTotal)
	prometheus.MustRegister(StatusTransitionsTotal)
	prometheus.MustRegister(SweepsTotal)
	prometheus.MustRegister(RequestsDeletedTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}
