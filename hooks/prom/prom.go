// Package promhooks exports cache events as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	h := promhooks.New("app")
//	reg.MustRegister(h)
//	s, _ := synckv.New(ctx, synckv.Options{Store: st, Hooks: h})
package promhooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/synckv"
)

const subsystem = "synckv"

var writeBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

type Hooks struct {
	loads         *prometheus.CounterVec
	loadDuration  *prometheus.HistogramVec
	loadedEntries *prometheus.GaugeVec
	writes        *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec
	reconciles    *prometheus.CounterVec
	pending       *prometheus.GaugeVec
}

var (
	_ synckv.Hooks         = (*Hooks)(nil)
	_ prometheus.Collector = (*Hooks)(nil)
)

func New(namespace string) *Hooks {
	return &Hooks{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loads_total",
			Help:      "Initial loads by result.",
		}, []string{"name", "result"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "load_duration_seconds",
			Help:      "Duration of successful initial loads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
		loadedEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loaded_entries",
			Help:      "Entries merged by the last initial load, by source.",
		}, []string{"name", "source"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "writes_total",
			Help:      "Background store writes by op and result.",
		}, []string{"op", "result"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "write_duration_seconds",
			Help:      "Latency of background store writes.",
			Buckets:   writeBuckets,
		}, []string{"op"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reloads_total",
			Help:      "Reload outcomes.",
		}, []string{"outcome"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_writes",
			Help:      "Background writes issued but not yet acknowledged.",
		}, []string{"name"}),
	}
}

func (h *Hooks) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.loads, h.loadDuration, h.loadedEntries, h.writes, h.writeDuration, h.reconciles, h.pending,
	}
}

func (h *Hooks) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range h.collectors() {
		c.Describe(ch)
	}
}

func (h *Hooks) Collect(ch chan<- prometheus.Metric) {
	for _, c := range h.collectors() {
		c.Collect(ch)
	}
}

func (h *Hooks) LoadCompleted(name string, fromStore, seeded int, took time.Duration) {
	h.loads.WithLabelValues(name, "ok").Inc()
	h.loadDuration.WithLabelValues(name).Observe(took.Seconds())
	h.loadedEntries.WithLabelValues(name, "store").Set(float64(fromStore))
	h.loadedEntries.WithLabelValues(name, "seed").Set(float64(seeded))
}

func (h *Hooks) LoadFailed(name string, _ error) {
	h.loads.WithLabelValues(name, "error").Inc()
}

func (h *Hooks) WriteDone(op, _ string, err error, took time.Duration) {
	h.writes.WithLabelValues(op, result(err)).Inc()
	h.writeDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (h *Hooks) Reconciled(_, outcome string) {
	h.reconciles.WithLabelValues(outcome).Inc()
}

func (h *Hooks) PendingChanged(name string, n int) {
	h.pending.WithLabelValues(name).Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
