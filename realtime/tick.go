package realtime

import (
	"fmt"

	"go.uber.org/zap"
)

// Tick processes one complete tick: every command queued so far applies in
// order. Called by the tick loop, or directly by hosts that own a frame
// loop. Returns the number of commands applied.
func (rt *Runtime[S]) Tick() int {
	// Phase 1: Collect commands atomically
	cmds := rt.collectCommands()

	// Phase 2: Sort for deterministic order
	sortCommands(cmds)

	// Phase 3: Apply against the machine
	rt.mu.Lock()
	for _, c := range cmds {
		rt.apply(c.Command)
	}
	rt.mu.Unlock()

	rt.batchMu.Lock()
	rt.tickNum++
	rt.batchMu.Unlock()

	return len(cmds)
}

// collectCommands atomically retrieves and clears the command batch
func (rt *Runtime[S]) collectCommands() []commandWithMeta[S] {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	cmds := rt.batch
	rt.batch = make([]commandWithMeta[S], 0, cap(rt.batch))

	return cmds
}

// apply runs one command. A panicking hook is logged and reported to the
// command's Reply; the tick goes on with the next command.
func (rt *Runtime[S]) apply(cmd Command[S]) {
	var (
		state S
		err   error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrHookPanic, r)
				rt.logger.Error("recovered panic in state hook",
					zap.Stringer("op", cmd.Op),
					zap.Any("panic", r))
			}
		}()
		state, err = rt.dispatch(cmd)
	}()

	if cmd.Reply != nil {
		cmd.Reply(state, err)
	}
}

func (rt *Runtime[S]) dispatch(cmd Command[S]) (S, error) {
	m := rt.machine
	switch cmd.Op {
	case OpNext:
		return m.Next(cmd.Boundary)
	case OpPrevious:
		return m.Previous(cmd.Boundary)
	case OpExit:
		var zero S
		return zero, m.Exit()
	case OpSwitch:
		return m.SwitchState(cmd.Target)
	case OpSwitchIndex:
		return m.SwitchIndex(cmd.Index)
	case OpSwitchName:
		return m.SwitchName(cmd.Name)
	default:
		var zero S
		return zero, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Op)
	}
}
