package stateful

import "sync"

// Guarded serializes every call on a Machine behind one mutex, so at most
// one transition runs at a time across goroutines. Hooks and subscribers
// run while the lock is held and must not call back into the same Guarded.
type Guarded[S interface {
	State
	comparable
}] struct {
	mu sync.Mutex
	m  *Machine[S]
}

// NewGuarded wraps m. Callers must stop using m directly.
func NewGuarded[S interface {
	State
	comparable
}](m *Machine[S]) *Guarded[S] {
	return &Guarded[S]{m: m}
}

func (g *Guarded[S]) Start(initial S) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Start(initial)
}

func (g *Guarded[S]) Next(exitIfLast bool) (S, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Next(exitIfLast)
}

func (g *Guarded[S]) Previous(exitIfFirst bool) (S, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Previous(exitIfFirst)
}

func (g *Guarded[S]) Exit() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Exit()
}

func (g *Guarded[S]) SwitchState(target S) (S, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.SwitchState(target)
}

func (g *Guarded[S]) SwitchIndex(i int) (S, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.SwitchIndex(i)
}

func (g *Guarded[S]) SwitchName(name string) (S, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.SwitchName(name)
}

func (g *Guarded[S]) Current() (S, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Current()
}

// Position returns the current index and boundary flags in one snapshot.
func (g *Guarded[S]) Position() (index int, atFirst, atLast bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.CurrentIndex(), g.m.AtFirst(), g.m.AtLast()
}

// Subscribe registers fn on Changed under the lock.
func (g *Guarded[S]) Subscribe(fn func(S)) Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Changed.Subscribe(fn)
}

func (g *Guarded[S]) Unsubscribe(sub Subscription) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Changed.Unsubscribe(sub)
}

// Do runs fn with exclusive access to the underlying machine.
func (g *Guarded[S]) Do(fn func(m *Machine[S])) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.m)
}
