package pushz

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports operator statistics to Prometheus. A nil *Metrics is valid
// and records nothing, so operators carry one unconditionally.
//
// Example:
//
//	metrics := pushz.NewMetrics(prometheus.DefaultRegisterer)
//	sharder := pushz.NewSharder(partition).WithMetrics(metrics)
//	sorter := pushz.NewSorter(storage, key, cmp.Compare[int], false, 1<<16).
//		WithMetrics(metrics)
type Metrics struct {
	shardItems *prometheus.CounterVec
	runs       *prometheus.CounterVec
	runItems   *prometheus.CounterVec
	groups     *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewMetrics creates the pushz collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		shardItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushz",
			Name:      "shard_items_total",
			Help:      "Items routed to each sharder output.",
		}, []string{"operator", "shard"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushz",
			Name:      "sorter_runs_total",
			Help:      "Sorted runs spilled to storage.",
		}, []string{"operator"}),
		runItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushz",
			Name:      "sorter_spilled_items_total",
			Help:      "Items written to storage as part of a sorted run.",
		}, []string{"operator"}),
		groups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushz",
			Name:      "reducer_groups_total",
			Help:      "Key groups completed by a reducer.",
		}, []string{"operator"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushz",
			Name:      "stream_failures_total",
			Help:      "Operators closed with an error.",
		}, []string{"operator"}),
	}
}

func (m *Metrics) shardItem(operator string, shard int) {
	if m == nil {
		return
	}
	m.shardItems.WithLabelValues(operator, strconv.Itoa(shard)).Inc()
}

func (m *Metrics) runSpilled(operator string, items int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(operator).Inc()
	m.runItems.WithLabelValues(operator).Add(float64(items))
}

func (m *Metrics) groupCompleted(operator string) {
	if m == nil {
		return
	}
	m.groups.WithLabelValues(operator).Inc()
}

func (m *Metrics) streamFailed(operator string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operator).Inc()
}
