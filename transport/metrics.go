package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "groupmod_bridge_request_duration_sec",
	Help:    "Duration of requests to the chat bridge",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
}, []string{"op", "status"})

var droppedActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_bridge_dropped_actions",
	Help: "Actions dropped by the per-room send window",
}, []string{"kind"})
