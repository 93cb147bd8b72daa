package kvengine

import "github.com/prometheus/client_golang/prometheus"

// storeMetrics holds the counters/gauges a Store reports on its registry.
// No HTTP server is started by this package; Store.Metrics returns the
// registry for an embedding application to expose however it likes.
type storeMetrics struct {
	setsTotal        prometheus.Counter
	getsTotal        prometheus.Counter
	removesTotal     prometheus.Counter
	compactionsTotal prometheus.Counter
	staleBytes       prometheus.Gauge
	keys             prometheus.Gauge
	segments         prometheus.Gauge
}

func newStoreMetrics(registry *prometheus.Registry) *storeMetrics {
	m := &storeMetrics{
		setsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kv_sets_total",
			Help: "Number of successful Set calls.",
		}),
		getsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kv_gets_total",
			Help: "Number of Get calls, hit or miss.",
		}),
		removesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kv_removes_total",
			Help: "Number of successful Remove calls.",
		}),
		compactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kv_compactions_total",
			Help: "Number of compactions run.",
		}),
		staleBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kv_stale_bytes",
			Help: "Bytes of log content that no longer contribute to visible state.",
		}),
		keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kv_keys",
			Help: "Number of live keys in the index.",
		}),
		segments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kv_segments",
			Help: "Number of generation files on disk.",
		}),
	}

	registry.MustRegister(
		m.setsTotal,
		m.getsTotal,
		m.removesTotal,
		m.compactionsTotal,
		m.staleBytes,
		m.keys,
		m.segments,
	)

	return m
}
