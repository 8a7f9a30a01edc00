package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "groupmod_event_duration_sec",
	Help:    "Duration of processing inbound events",
	Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_commands",
	Help: "Number of recognized commands handled",
}, []string{"command"})

var moderationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_moderation_actions",
	Help: "Number of moderation decisions (deletes and mutes) by reason",
}, []string{"reason"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_actions_executed",
	Help: "Number of outbound actions handed to the transport",
}, []string{"kind"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_action_errors",
	Help: "Number of outbound actions the transport failed to execute",
}, []string{"kind"})

var rosterLookupCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_roster_lookups",
	Help: "Admin roster lookups, by cache outcome",
}, []string{"result"})
