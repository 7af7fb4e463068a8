// Package metrics exports machine activity to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/stateful"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "stateful"
	subsystem = "machine"
)

// Collector holds the metric vectors for any number of machines.
type Collector struct {
	transitions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	currentIndex *prometheus.GaugeVec
}

// NewCollector creates the vectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transitions_total",
				Help:      "Committed transitions by machine and entered state",
			},
			[]string{"machine", "state"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rejections_total",
				Help:      "Refused navigation requests by machine and reason",
			},
			[]string{"machine", "reason"},
		),
		currentIndex: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "current_index",
				Help:      "Position of the current state (-1 when none)",
			},
			[]string{"machine"},
		),
	}

	for _, col := range []prometheus.Collector{c.transitions, c.rejections, c.currentIndex} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Attach subscribes the collector to m and returns a function that removes
// the subscriptions. Call it from the goroutine that owns m.
func Attach[S interface {
	stateful.State
	comparable
}](c *Collector, m *stateful.Machine[S]) (detach func()) {
	id := m.ID()
	c.currentIndex.WithLabelValues(id).Set(float64(m.CurrentIndex()))

	changed := m.Changed.Subscribe(func(s S) {
		i, _ := m.IndexOf(s)
		c.transitions.WithLabelValues(id, stateLabel(s, i)).Inc()
		c.currentIndex.WithLabelValues(id).Set(float64(i))
	})
	rejected := m.Rejected.Subscribe(func(r stateful.Rejection) {
		c.rejections.WithLabelValues(id, r.Reason()).Inc()
	})

	return func() {
		m.Changed.Unsubscribe(changed)
		m.Rejected.Unsubscribe(rejected)
	}
}

// Observe refreshes the position gauge. Exit does not fire Changed, so
// hosts call this after exiting.
func Observe[S interface {
	stateful.State
	comparable
}](c *Collector, m *stateful.Machine[S]) {
	c.currentIndex.WithLabelValues(m.ID()).Set(float64(m.CurrentIndex()))
}

func stateLabel(s any, i int) string {
	if n, ok := s.(stateful.Named); ok {
		return n.Name()
	}
	return "#" + strconv.Itoa(i)
}
