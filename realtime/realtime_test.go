package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/stateful"
)

func newNodes(names ...string) []*stateful.Node {
	nodes := make([]*stateful.Node, len(names))
	for i, name := range names {
		nodes[i] = stateful.NewNode(name, nil)
	}
	return nodes
}

func newTestRuntime(t *testing.T, cfg Config, names ...string) (*Runtime[*stateful.Node], []*stateful.Node) {
	t.Helper()
	nodes := newNodes(names...)
	m, err := stateful.NewMachine(nodes)
	require.NoError(t, err)
	return NewRuntime(m, cfg), nodes
}

func TestRuntimeDefaults(t *testing.T) {
	rt, _ := newTestRuntime(t, Config{}, "a")

	assert.Equal(t, 16667*time.Microsecond, rt.tickRate)
	assert.Equal(t, 1000, cap(rt.batch))
	assert.NotNil(t, rt.logger)
}

func TestManualTickAppliesQueuedCommands(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{}, "a", "b", "c")
	require.NoError(t, rt.StartMachine(nodes[0]))

	require.NoError(t, rt.Next(false))
	require.NoError(t, rt.Next(false))
	assert.Equal(t, 2, rt.Pending())

	// Nothing moves until the tick.
	cur, _ := rt.Current()
	assert.Equal(t, nodes[0], cur)

	assert.Equal(t, 2, rt.Tick())
	cur, _ = rt.Current()
	assert.Equal(t, nodes[2], cur)
	assert.Equal(t, uint64(1), rt.TickNumber())
	assert.Equal(t, 0, rt.Pending())
}

func TestPriorityThenFIFO(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{}, "a", "b", "c", "d")
	require.NoError(t, rt.StartMachine(nil))

	var order []string
	reply := func(tag string) func(*stateful.Node, error) {
		return func(n *stateful.Node, err error) {
			require.NoError(t, err)
			order = append(order, tag+"="+n.Name())
		}
	}

	require.NoError(t, rt.Submit(Command[*stateful.Node]{Op: OpSwitchName, Name: "b", Reply: reply("low1")}))
	require.NoError(t, rt.Submit(Command[*stateful.Node]{Op: OpSwitchIndex, Index: 3, Priority: 5, Reply: reply("high")}))
	require.NoError(t, rt.Submit(Command[*stateful.Node]{Op: OpSwitch, Target: nodes[2], Reply: reply("low2")}))

	rt.Tick()

	assert.Equal(t, []string{"high=d", "low1=b", "low2=c"}, order)
}

func TestReplyCarriesRejection(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{}, "a", "b")
	require.NoError(t, rt.StartMachine(nodes[0]))

	var got error
	require.NoError(t, rt.Submit(Command[*stateful.Node]{
		Op:    OpSwitchName,
		Name:  "missing",
		Reply: func(_ *stateful.Node, err error) { got = err },
	}))
	rt.Tick()

	assert.ErrorIs(t, got, stateful.ErrUnknownState)
}

func TestQueueFull(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{MaxCommandsPerTick: 2}, "a", "b")
	require.NoError(t, rt.StartMachine(nodes[0]))

	require.NoError(t, rt.Next(false))
	require.NoError(t, rt.Previous(false))
	assert.ErrorIs(t, rt.Exit(), ErrQueueFull)

	rt.Tick()
	assert.NoError(t, rt.Exit())
}

func TestHookPanicIsRecovered(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{}, "a", "b", "c")
	nodes[1].OnEnter.Subscribe(func(*stateful.Node) { panic("boom") })
	require.NoError(t, rt.StartMachine(nodes[0]))

	var first error
	require.NoError(t, rt.Submit(Command[*stateful.Node]{
		Op:    OpNext,
		Reply: func(_ *stateful.Node, err error) { first = err },
	}))
	require.NoError(t, rt.SwitchName("c"))
	rt.Tick()

	assert.ErrorIs(t, first, ErrHookPanic)
	cur, ok := rt.Current()
	require.True(t, ok)
	assert.Equal(t, "c", cur.Name(), "commands after the panic still apply")
}

func TestExitHookPanicDoesNotExitTwice(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{}, "a", "b")
	exits := 0
	nodes[0].OnExit.Subscribe(func(*stateful.Node) {
		exits++
		if exits == 1 {
			panic("boom")
		}
	})
	require.NoError(t, rt.StartMachine(nodes[0]))

	var first error
	require.NoError(t, rt.Submit(Command[*stateful.Node]{
		Op:    OpNext,
		Reply: func(_ *stateful.Node, err error) { first = err },
	}))
	rt.Tick()

	assert.ErrorIs(t, first, ErrHookPanic)
	_, ok := rt.Current()
	assert.False(t, ok, "a panic while exiting leaves the machine idle")
	assert.False(t, nodes[0].Active())

	// From idle, Next enters the first state; a is not exited again.
	require.NoError(t, rt.Next(false))
	require.NoError(t, rt.Next(false))
	rt.Tick()

	cur, ok := rt.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.Name())
	assert.Equal(t, 2, exits, "one exit per time a was left")
}

func TestRestartAfterStop(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{TickRate: 2 * time.Millisecond}, "a", "b", "c")

	require.NoError(t, rt.Start(context.Background(), nodes[0]))
	require.NoError(t, rt.Next(false))
	require.Eventually(t, func() bool { return rt.Pending() == 0 && rt.TickNumber() > 1 }, time.Second, time.Millisecond)
	require.NoError(t, rt.Stop())

	// Stopped: commands wait for the next start.
	require.NoError(t, rt.Next(false))
	assert.Equal(t, 1, rt.Pending())

	require.NoError(t, rt.Start(context.Background(), nodes[0]))
	defer rt.Stop()

	require.Eventually(t, func() bool {
		cur, _ := rt.Current()
		return cur == nodes[2]
	}, time.Second, time.Millisecond, "position is kept and initial ignored on restart")
}

func TestUnknownCommand(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{}, "a")
	require.NoError(t, rt.StartMachine(nodes[0]))

	var got error
	require.NoError(t, rt.Submit(Command[*stateful.Node]{Op: Op(42), Reply: func(_ *stateful.Node, err error) { got = err }}))
	rt.Tick()

	assert.ErrorIs(t, got, ErrUnknownCommand)
}

func TestTickLoop(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{TickRate: 2 * time.Millisecond}, "a", "b", "c")

	var mu sync.Mutex
	var seen []string
	rt.Do(func(m *stateful.Machine[*stateful.Node]) {
		m.Changed.Subscribe(func(n *stateful.Node) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, n.Name())
		})
	})

	require.NoError(t, rt.Start(context.Background(), nodes[0]))
	assert.ErrorIs(t, rt.Start(context.Background(), nodes[0]), ErrRunning)

	require.NoError(t, rt.Next(false))
	require.NoError(t, rt.Next(false))

	require.Eventually(t, func() bool {
		cur, _ := rt.Current()
		return cur == nodes[2]
	}, time.Second, time.Millisecond)

	require.NoError(t, rt.Stop())
	require.NoError(t, rt.Stop())
	assert.Positive(t, rt.TickNumber())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestConcurrentSubmitters(t *testing.T) {
	rt, nodes := newTestRuntime(t, Config{MaxCommandsPerTick: 10000}, "a", "b", "c", "d")
	require.NoError(t, rt.StartMachine(nodes[0]))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if (w+i)%2 == 0 {
					_ = rt.Next(false)
				} else {
					_ = rt.Previous(false)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, rt.Tick())
	rt.Do(func(m *stateful.Machine[*stateful.Node]) {
		i := m.CurrentIndex()
		assert.GreaterOrEqual(t, i, 0)
		assert.Equal(t, i == 0, m.AtFirst())
		assert.Equal(t, i == m.Len()-1, m.AtLast())
	})
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "next", OpNext.String())
	assert.Equal(t, "switch-name", OpSwitchName.String())
	assert.Equal(t, "op(9)", Op(9).String())
}
