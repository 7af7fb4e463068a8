package realtime

import (
	"sort"
	"strconv"

	"github.com/comalice/stateful"
)

// Op selects the machine operation a Command performs.
type Op int

const (
	OpNext Op = iota
	OpPrevious
	OpExit
	OpSwitch
	OpSwitchIndex
	OpSwitchName
)

func (o Op) String() string {
	switch o {
	case OpNext:
		return "next"
	case OpPrevious:
		return "previous"
	case OpExit:
		return "exit"
	case OpSwitch:
		return "switch"
	case OpSwitchIndex:
		return "switch-index"
	case OpSwitchName:
		return "switch-name"
	default:
		return "op(" + strconv.Itoa(int(o)) + ")"
	}
}

// Command is a navigation request queued for the next tick.
type Command[S interface {
	stateful.State
	comparable
}] struct {
	Op Op
	// Target is used by OpSwitch.
	Target S
	// Index is used by OpSwitchIndex.
	Index int
	// Name is used by OpSwitchName.
	Name string
	// Boundary is exitIfLast for OpNext and exitIfFirst for OpPrevious.
	Boundary bool
	// Priority orders commands within a tick; higher runs first.
	Priority int
	// Reply, if set, receives the outcome on the tick goroutine.
	Reply func(state S, err error)
}

// commandWithMeta adds sequencing metadata for deterministic ordering
type commandWithMeta[S interface {
	stateful.State
	comparable
}] struct {
	Command     Command[S]
	SequenceNum uint64
}

// sortCommands orders commands deterministically
func sortCommands[S interface {
	stateful.State
	comparable
}](cmds []commandWithMeta[S]) {
	// Stable sort preserves insertion order for equal priorities
	sort.SliceStable(cmds, func(i, j int) bool {
		// Primary: Higher priority first
		if cmds[i].Command.Priority != cmds[j].Command.Priority {
			return cmds[i].Command.Priority > cmds[j].Command.Priority
		}

		// Secondary: Earlier sequence number first (FIFO)
		return cmds[i].SequenceNum < cmds[j].SequenceNum
	})
}
