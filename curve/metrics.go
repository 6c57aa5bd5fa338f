package curve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curvewatch_snapshot_reads_total",
		Help: "Number of aggregated token state reads by result",
	}, []string{"result"})
	estimateRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curvewatch_estimate_requests_total",
		Help: "Number of estimate requests by result (hit, miss, invalid, error, cancelled)",
	}, []string{"result"})
	estimateRemoteCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curvewatch_estimate_remote_calls_total",
		Help: "Number of remote estimate simulation calls",
	})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curvewatch_events_total",
		Help: "Number of decoded factory events by event name",
	}, []string{"event"})
	eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curvewatch_events_dropped_total",
		Help: "Number of factory logs that failed decoding or could not be delivered",
	})
	notificationsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curvewatch_notifications_suppressed_total",
		Help: "Number of notices suppressed by the notification cooldown",
	})
	trackedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_tracked_tokens",
		Help: "Number of tokens with an active snapshot poll loop",
	})
)
