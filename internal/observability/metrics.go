package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geofence_reminders"

// Metrics holds the Prometheus collectors for the geofence service.
type Metrics struct {
	Registrations          *prometheus.CounterVec // labels: outcome={registered,rejected_id,rejected_geometry,monitor_failed}
	RegionEvents           *prometheus.CounterVec // labels: kind={enter,exit,failure}
	LocationFetches        *prometheus.CounterVec // labels: outcome={success,error}
	NotificationsDelivered prometheus.Counter
	MonitoredRegions       prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.Registrations,
		m.RegionEvents,
		m.LocationFetches,
		m.NotificationsDelivered,
		m.MonitoredRegions,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_registrations_total",
			Help:      "Geofence registration attempts by outcome.",
		}, []string{"outcome"}),
		RegionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_events_total",
			Help:      "Region monitoring callbacks by kind.",
		}, []string{"kind"}),
		LocationFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_fetches_total",
			Help:      "Point-of-interest fetches by outcome.",
		}, []string{"outcome"}),
		NotificationsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Local notifications whose trigger fired.",
		}),
		MonitoredRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitored_regions",
			Help:      "Regions currently watched by the region monitor.",
		}),
	}
}
