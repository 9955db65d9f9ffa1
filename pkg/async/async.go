// Package async is the task-tracking facility of the Blocks runtime.
//
// Every subscription, scheduled task, and pending deferred value created on
// behalf of a component instance is registered here under a named group.
// Destroying the component calls ClearAll, which cancels every outstanding
// task and locks the facility against new work, so no handler can fire after
// destruction begins.
package async

import (
	"errors"
	"sync"
)

// DefaultGroup is the group used when options carry no group name.
const DefaultGroup = "default"

// ErrLocked is returned when work is scheduled on a cleared facility.
var ErrLocked = errors.New("async: facility is locked")

// EventSource is the subset of an event emitter the facility subscribes on.
type EventSource interface {
	On(event string, handler func(args ...any)) (off func())
	Once(event string, handler func(args ...any)) (off func())
}

// Options control how a task is tracked.
type Options struct {
	// Group names the resource group the task belongs to.
	// Empty means DefaultGroup.
	Group string
	// Label is an optional diagnostic name for the task.
	Label string
}

func (o *Options) group() string {
	if o == nil || o.Group == "" {
		return DefaultGroup
	}
	return o.Group
}

// task is one tracked resource. cancel is nil once deregistered.
type task struct {
	id     int
	label  string
	cancel func()
}

// Async tracks cancellable resources for a single component instance.
type Async struct {
	mu     sync.Mutex
	locked bool
	nextID int
	groups map[string][]*task
}

// NewAsync creates an empty, unlocked facility.
func NewAsync() *Async {
	return &Async{groups: make(map[string][]*task)}
}

// register adds a cancel function under the group. Returns an unregister
// function that removes the task without invoking cancel.
func (a *Async) register(group, label string, cancel func()) (func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.locked {
		return nil, ErrLocked
	}
	a.nextID++
	t := &task{id: a.nextID, label: label, cancel: cancel}
	a.groups[group] = append(a.groups[group], t)
	return func() {
		a.mu.Lock()
		t.cancel = nil
		a.mu.Unlock()
	}, nil
}

// Promise tracks a completion. The returned completion mirrors the original
// unless the facility is cleared first, in which case it never settles and
// downstream handlers never fire.
func (a *Async) Promise(c *Completion, opts *Options) (*Completion, error) {
	var (
		mu        sync.Mutex
		cancelled bool
	)
	derived := New()

	unregister, err := a.register(opts.group(), optLabel(opts), func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	c.subscribe(func(settleErr error) {
		mu.Lock()
		dead := cancelled
		mu.Unlock()
		if dead {
			return
		}
		unregister()
		if settleErr != nil {
			derived.Reject(settleErr)
		} else {
			derived.ResolveWith(c.Value())
		}
	})
	return derived, nil
}

// On subscribes handler to an event on src under tracked cleanup. Extra args
// are appended to every invocation. The returned function unsubscribes and
// stops tracking.
func (a *Async) On(src EventSource, event string, handler func(args ...any), opts *Options, args ...any) (func(), error) {
	return a.subscribe(src.On, event, handler, opts, args...)
}

// Once is like On but the subscription fires at most once.
func (a *Async) Once(src EventSource, event string, handler func(args ...any), opts *Options, args ...any) (func(), error) {
	return a.subscribe(src.Once, event, handler, opts, args...)
}

func (a *Async) subscribe(sub func(string, func(...any)) func(), event string, handler func(args ...any), opts *Options, args ...any) (func(), error) {
	wrapped := handler
	if len(args) > 0 {
		wrapped = func(eventArgs ...any) {
			handler(append(eventArgs, args...)...)
		}
	}

	off := sub(event, wrapped)
	unregister, err := a.register(opts.group(), optLabel(opts), off)
	if err != nil {
		off()
		return nil, err
	}
	return func() {
		unregister()
		off()
	}, nil
}

// Worker tracks an arbitrary disposer (an unsubscribe handle, a stop
// function). ClearAll invokes it; the returned function detaches it from
// tracking without invoking it.
func (a *Async) Worker(disposer func(), opts *Options) (func(), error) {
	return a.register(opts.group(), optLabel(opts), disposer)
}

// SetImmediate schedules fn on the runtime scheduler as a deferred
// micro-task. If the facility is cleared before the task runs, fn never
// runs. The returned function cancels the pending task.
func (a *Async) SetImmediate(fn func(), opts *Options) (func(), error) {
	var (
		mu        sync.Mutex
		cancelled bool
	)
	cancel := func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
	}

	unregister, err := a.register(opts.group(), optLabel(opts), cancel)
	if err != nil {
		return nil, err
	}

	schedule(func() {
		mu.Lock()
		dead := cancelled
		mu.Unlock()
		if dead {
			return
		}
		unregister()
		fn()
	})
	return func() {
		unregister()
		cancel()
	}, nil
}

// ClearGroup cancels every task in the named group. Cancellation runs in
// reverse registration order. The facility stays unlocked.
func (a *Async) ClearGroup(name string) {
	a.mu.Lock()
	tasks := a.groups[name]
	delete(a.groups, name)
	a.mu.Unlock()

	runCancels(tasks)
}

// ClearAll cancels every tracked task in every group and locks the facility:
// all further registrations fail with ErrLocked.
func (a *Async) ClearAll() {
	a.mu.Lock()
	if a.locked {
		a.mu.Unlock()
		return
	}
	a.locked = true
	groups := a.groups
	a.groups = make(map[string][]*task)
	a.mu.Unlock()

	for _, tasks := range groups {
		runCancels(tasks)
	}
}

// Locked reports whether ClearAll has run.
func (a *Async) Locked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked
}

// Pending returns the number of live tasks in the named group.
func (a *Async) Pending(group string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, t := range a.groups[group] {
		if t.cancel != nil {
			n++
		}
	}
	return n
}

// runCancels invokes cancels in reverse registration order (LIFO).
func runCancels(tasks []*task) {
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].cancel != nil {
			tasks[i].cancel()
		}
	}
}

func optLabel(opts *Options) string {
	if opts == nil {
		return ""
	}
	return opts.Label
}
