// Tests for ChannelPublisher delivery and backpressure.
package production

import (
	"testing"
	"time"

	"github.com/comalice/stateful"
)

func newMenu(t *testing.T) (*stateful.Machine[*stateful.Node], []*stateful.Node) {
	t.Helper()
	nodes := []*stateful.Node{
		stateful.NewNode("title", nil),
		stateful.NewNode("options", nil),
		stateful.NewNode("credits", nil),
	}
	m, err := stateful.NewMachine(nodes, stateful.WithID("menu"))
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m, nodes
}

func TestChannelPublisher_Delivery(t *testing.T) {
	m, nodes := newMenu(t)
	ch := make(chan Change, 10)
	p := NewChannelPublisher(m, ch)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return at }

	if err := m.Start(nodes[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.Next(false); err != nil {
		t.Fatalf("Next: %v", err)
	}

	want := []Change{
		{MachineID: "menu", Index: 0, Name: "title", Timestamp: at},
		{MachineID: "menu", Index: 1, Name: "options", Timestamp: at},
	}
	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Errorf("change %d: got %+v, want %+v", i, got, w)
			}
		default:
			t.Fatalf("change %d not delivered", i)
		}
	}
}

func TestChannelPublisher_BackpressureDrop(t *testing.T) {
	m, nodes := newMenu(t)
	ch := make(chan Change, 1)
	p := NewChannelPublisher(m, ch)

	if err := m.Start(nodes[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Buffer is full; these must not block.
	m.Next(false)
	m.Next(false)

	if got := p.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if got := <-ch; got.Name != "title" {
		t.Errorf("first change = %q, want title", got.Name)
	}
}

func TestChannelPublisher_Close(t *testing.T) {
	m, nodes := newMenu(t)
	ch := make(chan Change, 4)
	p := NewChannelPublisher(m, ch)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if m.Changed.Len() != 0 {
		t.Errorf("publisher still subscribed")
	}

	// Transitions after Close must not send on the closed channel.
	if err := m.Start(nodes[2]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed and empty")
	}
}
