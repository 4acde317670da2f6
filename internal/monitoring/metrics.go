// Package monitoring exposes prometheus counters for the ingestion and
// cache paths.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsAccepted counts accepted snapshot submissions per center.
	SnapshotsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetpulse_snapshots_accepted_total",
		Help: "Snapshot submissions accepted, by center code.",
	}, []string{"center"})

	// EventsAccepted counts accepted real-time events per center and type.
	EventsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetpulse_events_accepted_total",
		Help: "Real-time events accepted, by center code and event type.",
	}, []string{"center", "type"})

	// AuthRejections counts rejected submissions by reason.
	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetpulse_auth_rejections_total",
		Help: "Submissions rejected during authentication, by reason.",
	}, []string{"reason"})

	// CacheHits counts analytics responses served from the cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vetpulse_cache_hits_total",
		Help: "Analytics responses served from the cache.",
	})

	// CacheMisses counts analytics responses computed from the database.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vetpulse_cache_misses_total",
		Help: "Analytics responses computed from the database.",
	})
)
