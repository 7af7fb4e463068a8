// Package stateful provides a finite state machine over an ordered set of
// sibling states, the kind a game engine attaches to a scene node whose
// children are the modes of a menu, a tutorial or an enemy.
//
// The host owns the states and drives the machine from its own lifecycle:
// Start once, then Next, Previous, Exit and the SwitchState family in
// response to triggers. A transition either commits fully (exit the old
// state, enter the new one, update AtFirst/AtLast, notify Changed) or is
// refused up front with a *TransitionError and no side effects.
//
//	title := stateful.NewNode("title", nil)
//	options := stateful.NewNode("options", nil)
//	m, _ := stateful.NewMachine([]*stateful.Node{title, options})
//	m.Changed.Subscribe(func(n *stateful.Node) { fmt.Println("now in", n.Name()) })
//	m.Start(title)
//	m.Next(false)
//
// Machine is single-threaded. Use Guarded, or the tick-based driver in the
// realtime package, when several goroutines must share one machine.
package stateful
