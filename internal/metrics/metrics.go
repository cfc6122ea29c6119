package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lognorm_lines_classified_total",
		Help: "Lines classified, by the format that matched (unknown for unparseable lines)",
	}, []string{"format"})

	HubDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lognorm_hub_dropped_total",
		Help: "Entries dropped because a subscriber was not keeping up",
	})

	ForwardedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lognorm_forwarded_entries_total",
		Help: "Entries handed to a forward target, by target and status",
	}, []string{"target", "status"})

	ForwardDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lognorm_forward_batch_duration_seconds",
		Help:    "Time spent publishing one batch",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
)
