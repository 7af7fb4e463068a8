package stateful

// State is one mode of a machine. The machine guarantees a state is never
// entered twice or exited twice in a row.
type State interface {
	Enter()
	Exit()
}

// Named states can be reached by identifier (Machine.SwitchName).
type Named interface {
	Name() string
}

// Deactivator is implemented by states that can be switched off without
// firing their exit hooks. Machine.Start deactivates every such state
// before the initial transition.
type Deactivator interface {
	Deactivate()
}

// Activator is the host's visibility toggle for a Node (a scene object,
// a UI panel, ...).
type Activator interface {
	SetActive(active bool)
}

// ActivatorFunc adapts a plain function to Activator.
type ActivatorFunc func(active bool)

func (f ActivatorFunc) SetActive(active bool) { f(active) }

// Node is the stock State implementation: a named unit with an activation
// flag and ordered enter/exit callbacks.
type Node struct {
	// OnEnter fires after the node is activated.
	OnEnter Event[*Node]
	// OnExit fires after the node is deactivated.
	OnExit Event[*Node]

	name      string
	active    bool
	activator Activator
}

// NewNode creates a node. activator may be nil.
func NewNode(name string, activator Activator) *Node {
	return &Node{name: name, activator: activator}
}

func (n *Node) Name() string { return n.name }

// Active reports whether the node is currently switched on.
func (n *Node) Active() bool { return n.active }

// SetActivator replaces the host visibility toggle.
func (n *Node) SetActivator(a Activator) { n.activator = a }

func (n *Node) Enter() {
	n.setActive(true)
	n.OnEnter.Emit(n)
}

func (n *Node) Exit() {
	n.setActive(false)
	n.OnExit.Emit(n)
}

func (n *Node) Deactivate() {
	n.setActive(false)
}

func (n *Node) String() string { return n.name }

func (n *Node) setActive(active bool) {
	n.active = active
	if n.activator != nil {
		n.activator.SetActive(active)
	}
}
