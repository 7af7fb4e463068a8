// Package production provides integrations for hosting machines: change
// publishing and visualization.
package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/stateful"
)

// View is a snapshot of a machine's structure and position.
type View struct {
	ID           string   `json:"id"`
	States       []string `json:"states"`
	Current      int      `json:"current"`
	Phase        string   `json:"phase"`
	AllowReentry bool     `json:"allowReentry"`
}

// ViewOf captures m. States without a name are labelled by position.
func ViewOf[S interface {
	stateful.State
	comparable
}](m *stateful.Machine[S]) View {
	states := m.States()
	names := make([]string, len(states))
	for i, s := range states {
		if n, ok := any(s).(stateful.Named); ok && n.Name() != "" {
			names[i] = n.Name()
		} else {
			names[i] = fmt.Sprintf("#%d", i)
		}
	}
	return View{
		ID:           m.ID(),
		States:       names,
		Current:      m.CurrentIndex(),
		Phase:        m.Phase().String(),
		AllowReentry: m.AllowReentry(),
	}
}

// Visualizer renders machine views.
type Visualizer struct{}

// ExportDOT generates Graphviz DOT source: one node per state, "next" edges
// along the chain, dashed "previous" edges back, and the current state
// filled.
func (v *Visualizer) ExportDOT(view View) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `digraph %q {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`, view.ID)

	for i, name := range view.States {
		style := ""
		if i == view.Current {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", name, name, style)
	}

	for i := 0; i+1 < len(view.States); i++ {
		from, to := view.States[i], view.States[i+1]
		fmt.Fprintf(&buf, "  %q -> %q [label=\"next\"];\n", from, to)
		fmt.Fprintf(&buf, "  %q -> %q [label=\"previous\" style=dashed];\n", to, from)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the view.
func (v *Visualizer) ExportJSON(view View) ([]byte, error) {
	return json.MarshalIndent(view, "", "  ")
}
