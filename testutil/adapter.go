package testutil

import (
	"context"
	"time"

	"github.com/comalice/stateful"
	"github.com/comalice/stateful/realtime"
)

// MachineAdapter provides a common interface for driving a machine directly
// and through the tick-based runtime.
// This allows running the same test suite on both.
type MachineAdapter interface {
	Start(ctx context.Context, initial *stateful.Node) error
	Stop() error
	Next(exitIfLast bool) error
	Previous(exitIfFirst bool) error
	Exit() error
	SwitchName(name string) error
	CurrentName() string
	Position() (index int, atFirst, atLast bool)
	WaitForStability(timeout time.Duration) error
}

// DirectAdapter calls the machine synchronously.
type DirectAdapter struct {
	m *stateful.Machine[*stateful.Node]
}

// NewDirectAdapter creates a new adapter for direct calls.
func NewDirectAdapter(m *stateful.Machine[*stateful.Node]) *DirectAdapter {
	return &DirectAdapter{m: m}
}

func (a *DirectAdapter) Start(ctx context.Context, initial *stateful.Node) error {
	return a.m.Start(initial)
}

func (a *DirectAdapter) Stop() error { return nil }

func (a *DirectAdapter) Next(exitIfLast bool) error {
	_, err := a.m.Next(exitIfLast)
	return err
}

func (a *DirectAdapter) Previous(exitIfFirst bool) error {
	_, err := a.m.Previous(exitIfFirst)
	return err
}

func (a *DirectAdapter) Exit() error { return a.m.Exit() }

func (a *DirectAdapter) SwitchName(name string) error {
	_, err := a.m.SwitchName(name)
	return err
}

func (a *DirectAdapter) CurrentName() string {
	n, ok := a.m.Current()
	if !ok {
		return ""
	}
	return n.Name()
}

func (a *DirectAdapter) Position() (int, bool, bool) {
	return a.m.CurrentIndex(), a.m.AtFirst(), a.m.AtLast()
}

func (a *DirectAdapter) WaitForStability(timeout time.Duration) error {
	// Direct calls complete before returning.
	return nil
}

// TickBasedAdapter wraps the tick-based runtime
type TickBasedAdapter struct {
	rt       *realtime.Runtime[*stateful.Node]
	tickRate time.Duration
}

// NewTickBasedAdapter creates a new adapter for the tick-based runtime
func NewTickBasedAdapter(m *stateful.Machine[*stateful.Node], tickRate time.Duration) *TickBasedAdapter {
	return &TickBasedAdapter{
		rt: realtime.NewRuntime(m, realtime.Config{
			TickRate: tickRate,
		}),
		tickRate: tickRate,
	}
}

func (a *TickBasedAdapter) Start(ctx context.Context, initial *stateful.Node) error {
	return a.rt.Start(ctx, initial)
}

func (a *TickBasedAdapter) Stop() error { return a.rt.Stop() }

func (a *TickBasedAdapter) Next(exitIfLast bool) error { return a.rt.Next(exitIfLast) }

func (a *TickBasedAdapter) Previous(exitIfFirst bool) error { return a.rt.Previous(exitIfFirst) }

func (a *TickBasedAdapter) Exit() error { return a.rt.Exit() }

func (a *TickBasedAdapter) SwitchName(name string) error { return a.rt.SwitchName(name) }

func (a *TickBasedAdapter) CurrentName() string {
	n, ok := a.rt.Current()
	if !ok {
		return ""
	}
	return n.Name()
}

func (a *TickBasedAdapter) Position() (index int, atFirst, atLast bool) {
	a.rt.Do(func(m *stateful.Machine[*stateful.Node]) {
		index, atFirst, atLast = m.CurrentIndex(), m.AtFirst(), m.AtLast()
	})
	return index, atFirst, atLast
}

func (a *TickBasedAdapter) WaitForStability(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	// Wait until the queue is drained, then for the tick that drained it to
	// finish applying.
	for a.rt.Pending() > 0 {
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		time.Sleep(a.tickRate / 2)
	}
	drained := a.rt.TickNumber()
	for a.rt.TickNumber() <= drained {
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		time.Sleep(a.tickRate / 2)
	}
	return nil
}
