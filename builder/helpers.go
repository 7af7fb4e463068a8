package builder

import (
	"github.com/comalice/stateful" // the core package
)

// Hook is a callback attached to a node's enter or exit.
type Hook func(n *stateful.Node)

// Option pattern for configuring nodes
type Option func(*stateful.Node)

// State creates a node with the given options applied in order.
func State(name string, opts ...Option) *stateful.Node {
	n := stateful.NewNode(name, nil)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OnEnter adds a callback that runs when the node is entered.
func OnEnter(h Hook) Option {
	return func(n *stateful.Node) { n.OnEnter.Subscribe(h) }
}

// OnExit adds a callback that runs when the node is exited.
func OnExit(h Hook) Option {
	return func(n *stateful.Node) { n.OnExit.Subscribe(h) }
}

// WithActivator wires the node to a host visibility toggle.
func WithActivator(a stateful.Activator) Option {
	return func(n *stateful.Node) { n.SetActivator(a) }
}

// Machine creates a machine over nodes in order (first = index 0).
func Machine(opts []stateful.Option, nodes ...*stateful.Node) (*stateful.Machine[*stateful.Node], error) {
	return stateful.NewMachine(nodes, opts...)
}

// Sequence creates one plain node per name and a machine over them.
func Sequence(opts []stateful.Option, names ...string) (*stateful.Machine[*stateful.Node], error) {
	nodes := make([]*stateful.Node, len(names))
	for i, name := range names {
		nodes[i] = State(name)
	}
	return Machine(opts, nodes...)
}
