// Package metrics exposes the Prometheus counters and gauges surfaced
// at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge tripwatch reports.
type Metrics struct {
	PollsTotal          *prometheus.CounterVec
	PollDuration        *prometheus.HistogramVec
	NotificationsTotal  *prometheus.CounterVec
	CacheHitRate        prometheus.Gauge
	CacheSize           prometheus.Gauge
	TripsInFlight       prometheus.Gauge
}

// New registers and returns the metric set.
func New() *Metrics {
	m := &Metrics{
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripwatch_polls_total",
				Help: "Total poll cycles run, by outcome.",
			},
			[]string{"outcome"},
		),
		PollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripwatch_poll_duration_seconds",
				Help:    "Duration of a single poll cycle.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripwatch_notifications_total",
				Help: "Total notification dispatch attempts, by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		CacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripwatch_flightdata_cache_hit_rate",
			Help: "Flight-data cache hit rate over process lifetime.",
		}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripwatch_flightdata_cache_size",
			Help: "Current number of entries in the flight-data cache.",
		}),
		TripsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripwatch_trips_in_flight",
			Help: "Trips currently being polled.",
		}),
	}

	prometheus.MustRegister(
		m.PollsTotal,
		m.PollDuration,
		m.NotificationsTotal,
		m.CacheHitRate,
		m.CacheSize,
		m.TripsInFlight,
	)
	return m
}
