package stateful

// Subscription identifies a handler registered on an Event.
type Subscription uint64

// Event is a typed observer list with synchronous, ordered delivery.
// The zero value is ready to use. Not safe for concurrent use; the owning
// machine (or Guarded) serializes access.
type Event[T any] struct {
	handlers []handler[T]
	nextID   Subscription
}

type handler[T any] struct {
	id Subscription
	fn func(T)
}

// Subscribe registers fn and returns a token for Unsubscribe.
// Handlers fire in subscription order.
func (e *Event[T]) Subscribe(fn func(T)) Subscription {
	e.nextID++
	e.handlers = append(e.handlers, handler[T]{id: e.nextID, fn: fn})
	return e.nextID
}

// Unsubscribe removes the handler registered under sub.
// Reports whether a handler was removed.
func (e *Event[T]) Unsubscribe(sub Subscription) bool {
	for i, h := range e.handlers {
		if h.id != sub {
			continue
		}
		// Copy-on-write so an in-flight Emit keeps its snapshot intact.
		next := make([]handler[T], 0, len(e.handlers)-1)
		next = append(next, e.handlers[:i]...)
		next = append(next, e.handlers[i+1:]...)
		e.handlers = next
		return true
	}
	return false
}

// Emit delivers v to every handler registered when Emit was called.
func (e *Event[T]) Emit(v T) {
	snapshot := e.handlers
	for _, h := range snapshot {
		if h.fn != nil {
			h.fn(v)
		}
	}
}

// Len returns the number of registered handlers.
func (e *Event[T]) Len() int {
	return len(e.handlers)
}

// Clear removes all handlers.
func (e *Event[T]) Clear() {
	e.handlers = nil
}
