// Package realtime provides a tick-based deterministic driver for a
// stateful.Machine.
//
// A Machine is single-threaded. Runtime lets input handlers, network
// callbacks or scripts running on other goroutines request transitions:
// commands are batched and applied at fixed tick boundaries on one
// goroutine, so at most one transition is ever in progress.
//
// # Example Usage
//
//	m, _ := stateful.NewMachine(nodes)
//	rt := realtime.NewRuntime(m, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//	})
//	rt.Start(ctx, nodes[0])
//	rt.Next(false)
//
// Hosts that already run a frame loop skip Start and call StartMachine
// once, then Tick from their update function.
//
// # Command Ordering Guarantees
//
// Commands are ordered deterministically using:
//  1. Priority (higher priority processed first)
//  2. Sequence number (FIFO for same priority)
//
// Given the same sequence of Submit calls between two ticks, the machine
// always goes through the same transitions regardless of timing.
//
// # Trade-offs vs Direct Calls
//
// A command submitted mid-frame takes effect on the next tick, up to one
// tick rate later. Replies and Changed subscribers run on the tick
// goroutine.
package realtime
