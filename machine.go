package stateful

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Phase is the lifecycle position of a Machine.
type Phase int

const (
	// Unstarted machines reject every navigation call.
	Unstarted Phase = iota
	// Idle machines are started but have no current state.
	Idle
	// Active machines have a current state.
	Active
)

func (p Phase) String() string {
	switch p {
	case Unstarted:
		return "unstarted"
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// Machine holds an ordered set of sibling states and moves between them
// one at a time. The order of the states defines first, last, next and
// previous.
//
// S is normally a pointer type such as *Node. Machine is not safe for
// concurrent use; wrap it in Guarded or drive it through realtime.Runtime
// when several goroutines need it.
type Machine[S interface {
	State
	comparable
}] struct {
	// Changed fires once per committed transition with the new current
	// state, after that state's own enter hooks have run. Exit does not
	// fire it.
	Changed Event[S]
	// Rejected fires for every request the machine refused.
	Rejected Event[Rejection]

	id           string
	states       []S
	index        map[S]int
	current      S
	hasCurrent   bool
	atFirst      bool
	atLast       bool
	allowReentry bool
	phase        Phase
	busy         bool
	verbose      bool
	logger       *zap.Logger
}

// NewMachine creates a machine over states. The slice is copied; later
// changes to it do not affect the machine.
func NewMachine[S interface {
	State
	comparable
}](states []S, opts ...Option) (*Machine[S], error) {
	if len(states) == 0 {
		return nil, ErrNoStates
	}

	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	m := &Machine[S]{
		id:           cfg.id,
		states:       make([]S, len(states)),
		index:        make(map[S]int, len(states)),
		allowReentry: cfg.allowReentry,
		verbose:      cfg.verbose,
		logger:       cfg.logger.Named("statemachine").With(zap.String("machine", cfg.id)),
	}

	var zero S
	for i, s := range states {
		if s == zero {
			return nil, fmt.Errorf("state %d: %w", i, ErrInvalidState)
		}
		if prev, exists := m.index[s]; exists {
			return nil, fmt.Errorf("state %d repeats state %d: %w", i, prev, ErrDuplicateState)
		}
		m.index[s] = i
		m.states[i] = s
	}

	return m, nil
}

// Start switches every Deactivator state off and enters initial. A zero
// initial leaves the machine idle. Start succeeds at most once.
func (m *Machine[S]) Start(initial S) error {
	var zero S
	if m.phase != Unstarted {
		return m.reject("start", m.label(initial), ErrAlreadyStarted)
	}
	if initial != zero {
		if _, ok := m.index[initial]; !ok {
			return m.reject("start", m.label(initial), ErrNotMember)
		}
	}

	for _, s := range m.states {
		if d, ok := any(s).(Deactivator); ok {
			d.Deactivate()
		}
	}
	m.phase = Idle
	m.logger.Debug("machine started", zap.Int("states", len(m.states)))

	if initial != zero {
		m.commit(initial)
	}
	return nil
}

// Next moves to the following state. With no current state it enters the
// first one. On the last state it returns the current state unchanged, or
// exits it and returns the zero value when exitIfLast is set.
func (m *Machine[S]) Next(exitIfLast bool) (S, error) {
	var zero S
	if err := m.ready("next", ""); err != nil {
		return zero, err
	}
	if !m.hasCurrent {
		return m.switchTo("next", m.states[0])
	}

	i := m.index[m.current]
	if i == len(m.states)-1 {
		if exitIfLast {
			m.exit()
			return zero, nil
		}
		return m.current, nil
	}
	return m.switchTo("next", m.states[i+1])
}

// Previous mirrors Next toward the first state. With no current state it
// also enters the first state.
func (m *Machine[S]) Previous(exitIfFirst bool) (S, error) {
	var zero S
	if err := m.ready("previous", ""); err != nil {
		return zero, err
	}
	if !m.hasCurrent {
		return m.switchTo("previous", m.states[0])
	}

	i := m.index[m.current]
	if i == 0 {
		if exitIfFirst {
			m.exit()
			return zero, nil
		}
		return m.current, nil
	}
	return m.switchTo("previous", m.states[i-1])
}

// Exit leaves the current state without entering another one. It does not
// fire Changed. Exit on an idle machine does nothing.
func (m *Machine[S]) Exit() error {
	if err := m.ready("exit", ""); err != nil {
		return err
	}
	m.exit()
	return nil
}

// SwitchState transitions to target. It is refused when target is already
// current and reentry is disabled, or when target is not one of the
// machine's states.
func (m *Machine[S]) SwitchState(target S) (S, error) {
	var zero S
	if err := m.ready("switch", m.label(target)); err != nil {
		return zero, err
	}
	return m.switchTo("switch", target)
}

// SwitchIndex transitions to the state at position i. Indexes outside the
// state list are refused, not clamped.
func (m *Machine[S]) SwitchIndex(i int) (S, error) {
	var zero S
	target := "#" + strconv.Itoa(i)
	if err := m.ready("switch", target); err != nil {
		return zero, err
	}
	if i < 0 || i >= len(m.states) {
		return zero, m.reject("switch", target, ErrOutOfRange)
	}
	return m.switchTo("switch", m.states[i])
}

// SwitchName transitions to the first state whose Name matches name.
func (m *Machine[S]) SwitchName(name string) (S, error) {
	var zero S
	if err := m.ready("switch", name); err != nil {
		return zero, err
	}
	s, ok := m.Lookup(name)
	if !ok {
		return zero, m.reject("switch", name, ErrUnknownState)
	}
	return m.switchTo("switch", s)
}

// Lookup finds the first state whose Name matches name.
func (m *Machine[S]) Lookup(name string) (S, bool) {
	for _, s := range m.states {
		if n, ok := any(s).(Named); ok && n.Name() == name {
			return s, true
		}
	}
	var zero S
	return zero, false
}

// Current returns the current state and whether there is one.
func (m *Machine[S]) Current() (S, bool) {
	return m.current, m.hasCurrent
}

// CurrentIndex returns the position of the current state, or -1.
func (m *Machine[S]) CurrentIndex() int {
	if !m.hasCurrent {
		return -1
	}
	return m.index[m.current]
}

// AtFirst reports whether the current state is the first state.
func (m *Machine[S]) AtFirst() bool { return m.atFirst }

// AtLast reports whether the current state is the last state.
func (m *Machine[S]) AtLast() bool { return m.atLast }

func (m *Machine[S]) Phase() Phase { return m.phase }

func (m *Machine[S]) ID() string { return m.id }

func (m *Machine[S]) AllowReentry() bool { return m.allowReentry }

func (m *Machine[S]) Len() int { return len(m.states) }

// States returns a copy of the ordered state list.
func (m *Machine[S]) States() []S {
	out := make([]S, len(m.states))
	copy(out, m.states)
	return out
}

// IndexOf returns the position of s in the machine.
func (m *Machine[S]) IndexOf(s S) (int, bool) {
	i, ok := m.index[s]
	return i, ok
}

// Contains reports whether s belongs to the machine.
func (m *Machine[S]) Contains(s S) bool {
	_, ok := m.index[s]
	return ok
}

//
// Helper Functions (internal API)
//

func (m *Machine[S]) ready(op, target string) error {
	if m.phase == Unstarted {
		return m.reject(op, target, ErrNotStarted)
	}
	if m.busy {
		return m.reject(op, target, ErrBusy)
	}
	return nil
}

func (m *Machine[S]) switchTo(op string, target S) (S, error) {
	var zero S
	if m.hasCurrent && !m.allowReentry && target == m.current {
		return zero, m.reject(op, m.label(target), ErrReentry)
	}
	if _, ok := m.index[target]; !ok {
		return zero, m.reject(op, m.label(target), ErrNotMember)
	}
	m.commit(target)
	return m.current, nil
}

// commit performs exit-old, set-new, enter-new, then notifies. The
// outgoing state stops being current before its Exit runs, and the target
// becomes current before its Enter runs, so a panicking hook never leaves
// a state that can be exited twice. After a panic in Exit the machine is
// idle; after a panic in Enter the target is current and Changed is not
// fired.
func (m *Machine[S]) commit(target S) {
	m.hooks(func() {
		if m.hasCurrent {
			prev := m.clear()
			prev.Exit()
			m.trace("exited state", prev)
		}

		i := m.index[target]
		m.current = target
		m.hasCurrent = true
		m.atFirst = i == 0
		m.atLast = i == len(m.states)-1
		m.phase = Active

		target.Enter()
		m.trace("entered state", target)
	})
	m.Changed.Emit(target)
}

func (m *Machine[S]) exit() {
	if !m.hasCurrent {
		return
	}
	m.hooks(func() {
		prev := m.clear()
		prev.Exit()
		m.trace("exited state", prev)
	})
}

// clear drops the current state and returns it. The machine is idle
// afterwards.
func (m *Machine[S]) clear() S {
	prev := m.current
	var zero S
	m.current = zero
	m.hasCurrent = false
	m.atFirst = false
	m.atLast = false
	m.phase = Idle
	return prev
}

// hooks runs state callbacks with the busy flag raised so a hook cannot
// start a nested transition.
func (m *Machine[S]) hooks(fn func()) {
	m.busy = true
	defer func() { m.busy = false }()
	fn()
}

func (m *Machine[S]) reject(op, target string, err error) error {
	terr := &TransitionError{Op: op, Target: target, Err: err}

	level := zapcore.WarnLevel
	if err == ErrReentry {
		level = zapcore.InfoLevel
	}
	if ce := m.logger.Check(level, "state change rejected"); ce != nil {
		ce.Write(zap.String("op", op), zap.String("target", target), zap.Error(err))
	}

	m.Rejected.Emit(Rejection{MachineID: m.id, Op: op, Target: target, Err: err})
	return terr
}

func (m *Machine[S]) trace(msg string, s S) {
	level := zapcore.DebugLevel
	if m.verbose {
		level = zapcore.InfoLevel
	}
	if ce := m.logger.Check(level, msg); ce != nil {
		ce.Write(zap.String("state", m.label(s)), zap.Int("index", m.index[s]))
	}
}

// label names s for logs and errors.
func (m *Machine[S]) label(s S) string {
	var zero S
	if s == zero {
		return ""
	}
	if n, ok := any(s).(Named); ok {
		return n.Name()
	}
	if i, ok := m.index[s]; ok {
		return "#" + strconv.Itoa(i)
	}
	return fmt.Sprintf("%v", s)
}
