package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var workItemsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_scheduler_work_items_added_total",
	Help: "Total number of events added to the room scheduler",
}, []string{"pool"})

var workItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_scheduler_work_items_processed_total",
	Help: "Total number of events processed by the room scheduler",
}, []string{"pool"})

var workItemsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "groupmod_scheduler_work_items_failed_total",
	Help: "Total number of events whose handler returned an error",
}, []string{"pool"})

var workItemsQueued = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "groupmod_scheduler_work_items_queued",
	Help: "Events waiting behind an in-flight event for the same room",
}, []string{"pool"})

var workersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "groupmod_scheduler_workers_active",
	Help: "Number of workers currently running",
}, []string{"pool"})
