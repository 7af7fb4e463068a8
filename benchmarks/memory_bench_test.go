package benchmarks

import (
	"fmt"
	"testing"

	"github.com/comalice/stateful"
	"github.com/comalice/stateful/internal/definition"
)

func BenchmarkMemoryNewMachine(b *testing.B) {
	for _, n := range []int{2, 64, 1024} {
		b.Run(fmt.Sprintf("states_%d", n), func(b *testing.B) {
			nodes := GenNodes(n)
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := stateful.NewMachine(nodes, stateful.WithID("bench")); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkMemoryDefinitionParse(b *testing.B) {
	for _, n := range []int{8, 256} {
		data := GenDefinitionYAML(n)
		b.Run(fmt.Sprintf("states_%d", n), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := definition.Parse(data, definition.FormatYAML); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkMemoryDefinitionBuild(b *testing.B) {
	d := GenDefinition(256)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m, start, err := d.Build()
		if err != nil {
			b.Fatal(err)
		}
		if err := m.Start(start); err != nil {
			b.Fatal(err)
		}
	}
}
