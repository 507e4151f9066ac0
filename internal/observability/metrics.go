package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Feed loading metrics.
	FeedFetches       *prometheus.CounterVec   // labels: resource, outcome={success,http_error,error}
	FeedFetchDuration *prometheus.HistogramVec // labels: resource
	LoadFailures      prometheus.Counter
	DefectsLoaded     prometheus.Gauge
	DefectsUnmappable prometheus.Gauge

	// View metrics.
	ViewModeSwitches *prometheus.CounterVec // labels: mode={markers,heatmap,critical}
	PulseTasksActive prometheus.Gauge
	UploadsSimulated prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "road_dashboard",
			Name:      "feed_fetches_total",
			Help:      "Feed resource fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "road_dashboard",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of a single feed resource fetch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"resource"}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "road_dashboard",
			Name:      "load_failures_total",
			Help:      "Total feed loads aborted by a fetch or parse failure.",
		}),
		DefectsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "road_dashboard",
			Name:      "defects_loaded",
			Help:      "Defect records held in the current snapshot.",
		}),
		DefectsUnmappable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "road_dashboard",
			Name:      "defects_unmappable",
			Help:      "Defect records in the current snapshot without usable coordinates.",
		}),
		ViewModeSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "road_dashboard",
			Name:      "view_mode_switches_total",
			Help:      "Display mode activations by mode.",
		}, []string{"mode"}),
		PulseTasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "road_dashboard",
			Name:      "pulse_tasks_active",
			Help:      "Running pulse animation tasks for the critical layer (0 or 1).",
		}),
		UploadsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "road_dashboard",
			Name:      "uploads_simulated_total",
			Help:      "Synthetic records appended by the upload simulation.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "road_dashboard",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "road_dashboard",
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "road_dashboard",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.FeedFetches,
		m.FeedFetchDuration,
		m.LoadFailures,
		m.DefectsLoaded,
		m.DefectsUnmappable,
		m.ViewModeSwitches,
		m.PulseTasksActive,
		m.UploadsSimulated,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedFetches:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "road_dashboard", Name: "feed_fetches_total"}, []string{"resource", "outcome"}),
		FeedFetchDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "road_dashboard", Name: "feed_fetch_duration_seconds"}, []string{"resource"}),
		LoadFailures:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "road_dashboard", Name: "load_failures_total"}),
		DefectsLoaded:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "road_dashboard", Name: "defects_loaded"}),
		DefectsUnmappable:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "road_dashboard", Name: "defects_unmappable"}),
		ViewModeSwitches:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "road_dashboard", Name: "view_mode_switches_total"}, []string{"mode"}),
		PulseTasksActive:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "road_dashboard", Name: "pulse_tasks_active"}),
		UploadsSimulated:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "road_dashboard", Name: "uploads_simulated_total"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "road_dashboard", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "road_dashboard", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "road_dashboard", Name: "geocode_api_duration_seconds"}),
	}
}
