package production

import (
	"sync"
	"time"

	"github.com/comalice/stateful"
)

// Change describes one committed transition.
type Change struct {
	MachineID string
	Index     int
	Name      string
	Timestamp time.Time
}

// ChannelPublisher forwards a machine's change events to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher[S interface {
	stateful.State
	comparable
}] struct {
	ch      chan<- Change
	m       *stateful.Machine[S]
	sub     stateful.Subscription
	once    sync.Once
	dropped uint64
	now     func() time.Time
}

// NewChannelPublisher subscribes to m.Changed and publishes to ch.
func NewChannelPublisher[S interface {
	stateful.State
	comparable
}](m *stateful.Machine[S], ch chan<- Change) *ChannelPublisher[S] {
	p := &ChannelPublisher[S]{ch: ch, m: m, now: time.Now}
	p.sub = m.Changed.Subscribe(p.publish)
	return p
}

func (p *ChannelPublisher[S]) publish(s S) {
	i, _ := p.m.IndexOf(s)
	c := Change{
		MachineID: p.m.ID(),
		Index:     i,
		Timestamp: p.now(),
	}
	if n, ok := any(s).(stateful.Named); ok {
		c.Name = n.Name()
	}

	select {
	case p.ch <- c:
	default:
		p.dropped++
	}
}

// Dropped returns how many changes were discarded because the channel was
// full. Read it from the goroutine that drives the machine.
func (p *ChannelPublisher[S]) Dropped() uint64 {
	return p.dropped
}

// Close unsubscribes from the machine and closes the channel.
func (p *ChannelPublisher[S]) Close() error {
	p.once.Do(func() {
		p.m.Changed.Unsubscribe(p.sub)
		close(p.ch)
	})
	return nil
}
