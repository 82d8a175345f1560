package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "takes_sessions_started_total",
			Help: "Total takes sessions started",
		},
	)

	SessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takes_sessions_completed_total",
			Help: "Total takes sessions finalized, by reason",
		},
		[]string{"reason"},
	)

	// Notification metrics
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takes_notifications_sent_total",
			Help: "Outbound Slack notifications sent",
		},
		[]string{"kind"},
	)

	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takes_notification_failures_total",
			Help: "Outbound Slack notifications that failed to send",
		},
		[]string{"kind"},
	)

	// Sweep metrics
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takes_sweep_runs_total",
			Help: "Notification sweep passes executed",
		},
		[]string{"pass"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "takes_sweep_duration_seconds",
			Help:    "Duration of a full sweep iteration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// Completion reasons for SessionsCompleted.
const (
	ReasonStopped      = "stopped"
	ReasonTimeExpired  = "time_expired"
	ReasonPauseTimeout = "pause_timeout"
)

func init() {
	prometheus.MustRegister(
		SessionsStarted,
		SessionsCompleted,
		NotificationsSent,
		NotificationFailures,
		SweepRuns,
		SweepDuration,
	)
}

// StartMetricsServer starts the prometheus metrics HTTP endpoint
func StartMetricsServer(port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}
