package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/stateful"
)

var (
	ErrQueueFull      = errors.New("command queue full")
	ErrRunning        = errors.New("runtime already running")
	ErrHookPanic      = errors.New("state hook panicked")
	ErrUnknownCommand = errors.New("unknown command")
)

// Config configures the real-time runtime
type Config struct {
	TickRate           time.Duration // Fixed tick rate (e.g., 16.67ms for 60 FPS)
	MaxCommandsPerTick int           // Command queue capacity (default: 1000)
	Logger             *zap.Logger   // Defaults to a no-op logger
}

// Runtime drives a Machine from a fixed tick. Commands may be submitted
// from any goroutine; they apply on the tick, one at a time, in priority
// then submission order.
type Runtime[S interface {
	stateful.State
	comparable
}] struct {
	machine *stateful.Machine[S]
	mu      sync.Mutex // serializes every access to machine

	// Tick-specific fields
	tickRate time.Duration
	ticker   *time.Ticker
	tickNum  uint64

	// Command batching
	batch       []commandWithMeta[S]
	batchMu     sync.Mutex
	sequenceNum uint64

	// Control
	tickCtx    context.Context
	tickCancel context.CancelFunc
	stopped    chan struct{}
	running    bool

	logger *zap.Logger
}

// NewRuntime creates a tick-based driver for machine. The runtime takes
// over all access to machine.
func NewRuntime[S interface {
	stateful.State
	comparable
}](machine *stateful.Machine[S], cfg Config) *Runtime[S] {
	if cfg.MaxCommandsPerTick == 0 {
		cfg.MaxCommandsPerTick = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond // Default 60 FPS
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Runtime[S]{
		machine:  machine,
		tickRate: cfg.TickRate,
		batch:    make([]commandWithMeta[S], 0, cfg.MaxCommandsPerTick),
		logger:   cfg.Logger.Named("realtime").With(zap.String("machine", machine.ID())),
	}
}

// StartMachine starts the underlying machine without launching the tick
// loop. Hosts with their own frame loop call this once and then Tick every
// frame.
func (rt *Runtime[S]) StartMachine(initial S) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.machine.Start(initial)
}

func (rt *Runtime[S]) startOnce(initial S) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.machine.Phase() != stateful.Unstarted {
		return nil
	}
	return rt.machine.Start(initial)
}

// Start starts the machine in initial and begins tick-based execution.
// When the machine is already started, by StartMachine or an earlier Start
// before a Stop, it keeps its position and initial is ignored.
func (rt *Runtime[S]) Start(ctx context.Context, initial S) error {
	rt.batchMu.Lock()
	if rt.running {
		rt.batchMu.Unlock()
		return ErrRunning
	}
	rt.batchMu.Unlock()

	if err := rt.startOnce(initial); err != nil {
		return err
	}

	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	rt.tickCtx, rt.tickCancel = context.WithCancel(ctx)
	rt.ticker = time.NewTicker(rt.tickRate)
	rt.stopped = make(chan struct{})
	rt.running = true

	go rt.tickLoop(rt.tickCtx, rt.ticker, rt.stopped)

	rt.logger.Debug("tick loop started", zap.Duration("tickRate", rt.tickRate))
	return nil
}

// Stop halts the tick loop and waits for it to exit. Queued commands stay
// queued and apply on the next Tick or after the next Start. Stop on a
// runtime that is not running does nothing.
func (rt *Runtime[S]) Stop() error {
	rt.batchMu.Lock()
	if !rt.running {
		rt.batchMu.Unlock()
		return nil
	}
	rt.running = false
	cancel, ticker, stopped := rt.tickCancel, rt.ticker, rt.stopped
	rt.batchMu.Unlock()

	cancel()
	ticker.Stop()

	// Wait for tick loop to exit
	<-stopped
	rt.logger.Debug("tick loop stopped", zap.Uint64("ticks", rt.TickNumber()))
	return nil
}

// tickLoop is the main tick execution loop
func (rt *Runtime[S]) tickLoop(ctx context.Context, ticker *time.Ticker, stopped chan struct{}) {
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.Tick()
		}
	}
}

// Submit queues cmd for the next tick (thread-safe).
func (rt *Runtime[S]) Submit(cmd Command[S]) error {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	if len(rt.batch) >= cap(rt.batch) {
		return ErrQueueFull
	}

	rt.batch = append(rt.batch, commandWithMeta[S]{
		Command:     cmd,
		SequenceNum: rt.sequenceNum,
	})
	rt.sequenceNum++

	return nil
}

// Next queues Machine.Next.
func (rt *Runtime[S]) Next(exitIfLast bool) error {
	return rt.Submit(Command[S]{Op: OpNext, Boundary: exitIfLast})
}

// Previous queues Machine.Previous.
func (rt *Runtime[S]) Previous(exitIfFirst bool) error {
	return rt.Submit(Command[S]{Op: OpPrevious, Boundary: exitIfFirst})
}

// Exit queues Machine.Exit.
func (rt *Runtime[S]) Exit() error {
	return rt.Submit(Command[S]{Op: OpExit})
}

// Switch queues Machine.SwitchState.
func (rt *Runtime[S]) Switch(target S) error {
	return rt.Submit(Command[S]{Op: OpSwitch, Target: target})
}

// SwitchIndex queues Machine.SwitchIndex.
func (rt *Runtime[S]) SwitchIndex(i int) error {
	return rt.Submit(Command[S]{Op: OpSwitchIndex, Index: i})
}

// SwitchName queues Machine.SwitchName.
func (rt *Runtime[S]) SwitchName(name string) error {
	return rt.Submit(Command[S]{Op: OpSwitchName, Name: name})
}

// Pending returns the number of commands waiting for the next tick.
func (rt *Runtime[S]) Pending() int {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	return len(rt.batch)
}

// TickNumber returns the current tick count
func (rt *Runtime[S]) TickNumber() uint64 {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	return rt.tickNum
}

// Current returns the machine's current state.
func (rt *Runtime[S]) Current() (S, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.machine.Current()
}

// Do runs fn with exclusive access to the machine, between ticks.
func (rt *Runtime[S]) Do(fn func(m *stateful.Machine[S])) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn(rt.machine)
}
