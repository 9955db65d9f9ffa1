package engine

import "sync"

// Emitter provides custom-event communication for a component instance.
// Handlers run synchronously on the emitting goroutine, in subscription
// order.
type Emitter struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

type subscription struct {
	handler func(args ...any)
	once    bool
	dead    bool
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string][]*subscription)}
}

// On subscribes handler to event. The returned function unsubscribes.
func (e *Emitter) On(event string, handler func(args ...any)) (off func()) {
	return e.add(event, handler, false)
}

// Once subscribes handler to fire at most once.
func (e *Emitter) Once(event string, handler func(args ...any)) (off func()) {
	return e.add(event, handler, true)
}

func (e *Emitter) add(event string, handler func(args ...any), once bool) func() {
	sub := &subscription{handler: handler, once: once}
	e.mu.Lock()
	e.subs[event] = append(e.subs[event], sub)
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		sub.dead = true
		e.mu.Unlock()
	}
}

// Emit fires every live handler subscribed to event.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	subs := e.subs[event]
	fire := make([]func(args ...any), 0, len(subs))
	kept := subs[:0]
	for _, sub := range subs {
		if sub.dead {
			continue
		}
		fire = append(fire, sub.handler)
		if sub.once {
			sub.dead = true
			continue
		}
		kept = append(kept, sub)
	}
	e.subs[event] = kept
	e.mu.Unlock()

	for _, fn := range fire {
		fn(args...)
	}
}

// ListenerCount returns the number of live handlers for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, sub := range e.subs[event] {
		if !sub.dead {
			n++
		}
	}
	return n
}
