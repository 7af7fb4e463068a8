// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/stateful"
	"github.com/comalice/stateful/internal/definition"
)

// GenNodes creates n named nodes s0..s(n-1).
func GenNodes(n int) []*stateful.Node {
	if n < 1 {
		n = 1
	}
	nodes := make([]*stateful.Node, n)
	for i := range nodes {
		nodes[i] = stateful.NewNode(fmt.Sprintf("s%d", i), nil)
	}
	return nodes
}

// GenFlatMachine creates a started machine over n nodes, positioned on the
// first one.
func GenFlatMachine(n int, opts ...stateful.Option) (*stateful.Machine[*stateful.Node], []*stateful.Node) {
	nodes := GenNodes(n)
	m, err := stateful.NewMachine(nodes, opts...)
	if err != nil {
		panic(err)
	}
	if err := m.Start(nodes[0]); err != nil {
		panic(err)
	}
	return m, nodes
}

// GenDefinition creates a definition with n states.
func GenDefinition(n int) *definition.Definition {
	d := &definition.Definition{ID: fmt.Sprintf("flat_%d", n), Start: "s0"}
	for i := 0; i < n; i++ {
		d.States = append(d.States, definition.StateDef{Name: fmt.Sprintf("s%d", i)})
	}
	return d
}

// GenDefinitionYAML generates YAML bytes for a definition of the given size.
func GenDefinitionYAML(n int) []byte {
	data, err := yaml.Marshal(GenDefinition(n))
	if err != nil {
		panic(err)
	}
	return data
}

// step advances m one position around the cycle.
func step(m *stateful.Machine[*stateful.Node]) error {
	if m.AtLast() {
		_, err := m.SwitchIndex(0)
		return err
	}
	_, err := m.Next(false)
	return err
}
