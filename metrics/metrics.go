// Package metrics holds the Prometheus metrics of the election.
//
// Metrics are registered with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IsLeader is 1 while the process holds leadership.
	IsLeader = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "zkelection",
			Subsystem: "role",
			Name:      "is_leader",
			Help:      "Whether this process is currently the leader",
		},
	)

	// RoleDeterminations counts role resolutions by outcome.
	RoleDeterminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zkelection",
			Subsystem: "role",
			Name:      "determinations_total",
			Help:      "Total number of role determinations by role",
		},
		[]string{"role"},
	)

	// WatchArms counts existence watches left on watch targets.
	WatchArms = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zkelection",
			Subsystem: "watch",
			Name:      "arms_total",
			Help:      "Total number of existence watches armed",
		},
	)

	// TransientRetries counts operations retried after transient errors.
	TransientRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zkelection",
			Subsystem: "coordinator",
			Name:      "transient_retries_total",
			Help:      "Total number of coordination service operations retried after transient errors",
		},
		[]string{"operation"},
	)

	// SessionTerminations counts terminated sessions by reason.
	SessionTerminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zkelection",
			Subsystem: "session",
			Name:      "terminations_total",
			Help:      "Total number of terminated election sessions by reason",
		},
		[]string{"reason"},
	)
)

// Role label.
func Role(isLeader bool) string {
	if isLeader {
		return "leader"
	}
	return "follower"
}
