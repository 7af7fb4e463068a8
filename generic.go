package stateful

// StateMachine is the type-erased view of a Machine for hosts that only
// deal in State values.
type StateMachine interface {
	Start(initial State) error
	Next(exitIfLast bool) (State, error)
	Previous(exitIfFirst bool) (State, error)
	Exit() error
	SwitchState(target State) (State, error)
	SwitchIndex(i int) (State, error)
	SwitchName(name string) (State, error)
	Current() (State, bool)
	AtFirst() bool
	AtLast() bool
	// OnChanged subscribes to committed transitions and returns a function
	// that removes the subscription.
	OnChanged(fn func(State)) (unsubscribe func())
}

// Generic returns the type-erased view of m. Values passed in that are not
// of type S are refused with ErrNotMember.
func (m *Machine[S]) Generic() StateMachine {
	return erased[S]{m: m}
}

type erased[S interface {
	State
	comparable
}] struct {
	m *Machine[S]
}

func (e erased[S]) Start(initial State) error {
	if initial == nil {
		var zero S
		return e.m.Start(zero)
	}
	s, ok := initial.(S)
	if !ok {
		if e.m.phase != Unstarted {
			return e.m.reject("start", "", ErrAlreadyStarted)
		}
		return e.m.reject("start", "", ErrNotMember)
	}
	return e.m.Start(s)
}

func (e erased[S]) Next(exitIfLast bool) (State, error) {
	return wrap[S](e.m.Next(exitIfLast))
}

func (e erased[S]) Previous(exitIfFirst bool) (State, error) {
	return wrap[S](e.m.Previous(exitIfFirst))
}

func (e erased[S]) Exit() error { return e.m.Exit() }

func (e erased[S]) SwitchState(target State) (State, error) {
	s, ok := target.(S)
	if !ok {
		if err := e.m.ready("switch", ""); err != nil {
			return nil, err
		}
		return nil, e.m.reject("switch", "", ErrNotMember)
	}
	return wrap[S](e.m.SwitchState(s))
}

func (e erased[S]) SwitchIndex(i int) (State, error) {
	return wrap[S](e.m.SwitchIndex(i))
}

func (e erased[S]) SwitchName(name string) (State, error) {
	return wrap[S](e.m.SwitchName(name))
}

func (e erased[S]) Current() (State, bool) {
	s, ok := e.m.Current()
	if !ok {
		return nil, false
	}
	return s, true
}

func (e erased[S]) AtFirst() bool { return e.m.AtFirst() }

func (e erased[S]) AtLast() bool { return e.m.AtLast() }

func (e erased[S]) OnChanged(fn func(State)) func() {
	sub := e.m.Changed.Subscribe(func(s S) { fn(s) })
	return func() { e.m.Changed.Unsubscribe(sub) }
}

// wrap converts a typed result, mapping the zero S to a nil State.
func wrap[S interface {
	State
	comparable
}](s S, err error) (State, error) {
	var zero S
	if s == zero {
		return nil, err
	}
	return s, err
}
