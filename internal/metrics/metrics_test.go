package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/stateful"
)

func newMachine(t *testing.T, id string) (*stateful.Machine[*stateful.Node], []*stateful.Node) {
	t.Helper()
	nodes := []*stateful.Node{
		stateful.NewNode("a", nil),
		stateful.NewNode("b", nil),
	}
	m, err := stateful.NewMachine(nodes, stateful.WithID(id))
	require.NoError(t, err)
	return m, nodes
}

func TestCollectorCountsTransitionsAndRejections(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	m, nodes := newMachine(t, "menu")
	detach := Attach(c, m)
	assert.Equal(t, float64(-1), testutil.ToFloat64(c.currentIndex.WithLabelValues("menu")))

	require.NoError(t, m.Start(nodes[0]))
	_, err = m.Next(false)
	require.NoError(t, err)
	_, err = m.SwitchState(nodes[1])
	require.ErrorIs(t, err, stateful.ErrReentry)
	_, err = m.SwitchName("zzz")
	require.ErrorIs(t, err, stateful.ErrUnknownState)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.transitions.WithLabelValues("menu", "a")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.transitions.WithLabelValues("menu", "b")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rejections.WithLabelValues("menu", "reentry")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rejections.WithLabelValues("menu", "unknown_state")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.currentIndex.WithLabelValues("menu")))

	require.NoError(t, m.Exit())
	Observe(c, m)
	assert.Equal(t, float64(-1), testutil.ToFloat64(c.currentIndex.WithLabelValues("menu")))

	detach()
	_, err = m.Next(false)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.transitions.WithLabelValues("menu", "a")),
		"detached collector must not count")
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestCollectorSeparatesMachines(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	m1, n1 := newMachine(t, "one")
	m2, n2 := newMachine(t, "two")
	Attach(c, m1)
	Attach(c, m2)

	require.NoError(t, m1.Start(n1[1]))
	require.NoError(t, m2.Start(n2[0]))

	assert.Equal(t, float64(1), testutil.ToFloat64(c.currentIndex.WithLabelValues("one")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.currentIndex.WithLabelValues("two")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.transitions))
}
