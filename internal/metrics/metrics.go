package metrics

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	StageDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "scout_stage_duration_seconds",
			Help:       "Duration of each pipeline stage call.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage"},
	)
	CompletionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_completion_calls_total",
			Help: "Text completion calls by pipeline step and result.",
		},
		[]string{"step", "result"},
	)
	FilteredCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_filtered_candidates",
			Help:    "Number of rows returned by executed filter queries.",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)
	OutreachAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_outreach_attempts_total",
			Help: "Scout message delivery attempts by result.",
		},
		[]string{"result"},
	)
	ResponseStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_response_statuses_total",
			Help: "Response statuses observed by response tracking.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(ErrorsCounter, StageDuration, CompletionCalls, FilteredCandidates,
		OutreachAttempts, ResponseStatuses)
}

func StartMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), mux))
	}()
}
