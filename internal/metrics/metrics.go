// Package metrics implements Prometheus metrics for the session core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks sessions created by session.New that have not
	// yet completed terminate processing.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrcp_session_active",
			Help: "Number of sessions created and not yet terminated.",
		},
	)

	// SessionsTotal counts sessions created, partitioned by profile.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrcp_session_total",
			Help: "Total number of sessions created.",
		},
		[]string{"profile"},
	)

	// SubrequestsInFlight is registered for the sum of subrequest_count
	// across all live sessions. No code in this repository updates it:
	// internal/session's counter changes are not reported here, so the
	// gauge stays at 0.
	SubrequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrcp_session_subrequests_in_flight",
			Help: "Sum of subrequest_count across all live sessions.",
		},
	)

	// AnswerLatencySeconds measures time from OFFER dispatch to answer delivery.
	AnswerLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mrcp_session_answer_latency_seconds",
			Help:    "Time from OFFER dispatch to answer delivery.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TerminateLatencySeconds measures time from TERMINATE dispatch to terminate response.
	TerminateLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mrcp_session_terminate_latency_seconds",
			Help:    "Time from TERMINATE dispatch to terminate response.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AnswerStatusTotal counts answers delivered, partitioned by status code.
	AnswerStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrcp_session_answer_status_total",
			Help: "Answers delivered, partitioned by status code.",
		},
		[]string{"status"},
	)

	// MediaEngineContexts tracks the number of media contexts registered
	// with a media engine (NewContext minus ReleaseContext), whether or
	// not they currently hold a termination.
	MediaEngineContexts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mrcp_media_engine_contexts",
			Help: "Number of media contexts currently registered with the engine.",
		},
		[]string{"engine"},
	)

	// MediaEngineCommandsTotal counts commands applied by the media
	// engine, partitioned by kind and outcome.
	MediaEngineCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrcp_media_engine_commands_total",
			Help: "Commands applied by the media engine, partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)
