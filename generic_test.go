package stateful_test

import (
	"errors"
	"testing"

	"github.com/comalice/stateful"
)

type door struct{ open bool }

func (d *door) Enter() { d.open = true }
func (d *door) Exit()  { d.open = false }

func TestGenericView(t *testing.T) {
	a := stateful.NewNode("A", nil)
	b := stateful.NewNode("B", nil)
	m, err := stateful.NewMachine([]*stateful.Node{a, b})
	if err != nil {
		t.Fatal(err)
	}
	g := m.Generic()

	var seen []stateful.State
	unsubscribe := g.OnChanged(func(s stateful.State) { seen = append(seen, s) })

	if err := g.Start(a); err != nil {
		t.Fatal(err)
	}
	got, err := g.Next(false)
	if err != nil || got != stateful.State(b) {
		t.Fatalf("next: %v, %v", got, err)
	}
	if !g.AtLast() || g.AtFirst() {
		t.Error("flags not forwarded")
	}

	if _, err := g.SwitchState(&door{}); !errors.Is(err, stateful.ErrNotMember) {
		t.Errorf("foreign type: expected ErrNotMember, got %v", err)
	}

	// The zero typed state maps to a nil interface, not a typed nil.
	got, err = g.Next(true)
	if err != nil || got != nil {
		t.Errorf("exit via next: %v, %v", got, err)
	}
	if cur, ok := g.Current(); ok || cur != nil {
		t.Errorf("expected no current, got %v", cur)
	}

	unsubscribe()
	g.SwitchName("A")
	if len(seen) != 2 {
		t.Errorf("expected 2 notifications before unsubscribe, got %d", len(seen))
	}
}

func TestGenericViewCustomStateType(t *testing.T) {
	d1, d2 := &door{}, &door{}
	m, err := stateful.NewMachine([]*door{d1, d2})
	if err != nil {
		t.Fatal(err)
	}
	g := m.Generic()
	if err := g.Start(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.SwitchIndex(1); err != nil {
		t.Fatal(err)
	}
	if !d2.open || d1.open {
		t.Error("expected second door open")
	}

	// Custom states without names cannot be reached by identifier.
	if _, err := g.SwitchName("d1"); !errors.Is(err, stateful.ErrUnknownState) {
		t.Errorf("expected ErrUnknownState, got %v", err)
	}
}

func TestGenericStartForeignType(t *testing.T) {
	a := stateful.NewNode("A", nil)
	m, err := stateful.NewMachine([]*stateful.Node{a})
	if err != nil {
		t.Fatal(err)
	}
	g := m.Generic()

	if err := g.Start(&door{}); !errors.Is(err, stateful.ErrNotMember) {
		t.Errorf("unstarted: expected ErrNotMember, got %v", err)
	}
	if m.Phase() != stateful.Unstarted {
		t.Fatalf("phase = %s, want unstarted", m.Phase())
	}

	if err := g.Start(a); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(&door{}); !errors.Is(err, stateful.ErrAlreadyStarted) {
		t.Errorf("started: expected ErrAlreadyStarted, got %v", err)
	}
}
