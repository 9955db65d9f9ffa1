package component

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-drift/blocks/pkg/async"
	"github.com/go-drift/blocks/pkg/engine"
	"github.com/go-drift/blocks/pkg/errors"
)

// Context is the runtime state of one live component instance. It owns its
// data object (held by the engine handle's reactive store) and its async
// facility; the class Meta it references is shared and read-only, while
// Meta here is the per-instance writable child created at beforeCreate.
type Context struct {
	// ID uniquely identifies the instance.
	ID string
	// Name is the component name.
	Name string
	// Meta is the per-instance writable metadata record.
	Meta *Meta
	// Handle is the engine's per-instance surface.
	Handle engine.Handle
	// Parent is the nearest non-functional ancestor context, or nil.
	Parent *Context
	// Async tracks every cancellable resource of the instance.
	Async *async.Async
	// Instance is the shared prototype: a source of default values and
	// bound methods, never mutated per instance.
	Instance Block
	// Stage is the current lifecycle state.
	Stage Stage
	// Hook is the stage currently being processed.
	Hook Stage

	computed  map[string]*Accessor
	accessors map[string]*Accessor
	injected  map[string]any
	bound     map[*Watcher]bool
	mu        sync.Mutex
}

// Field resolves a dot-separated path on the instance: computed and plain
// accessors first, then the reactive store (data, props, system fields),
// then injected values, then the prototype instance's struct fields.
func (c *Context) Field(path string) (any, bool) {
	if !strings.Contains(path, ".") {
		if acc, ok := c.computed[path]; ok && acc.Get != nil {
			return acc.Get(c), true
		}
		if acc, ok := c.accessors[path]; ok && acc.Get != nil {
			return acc.Get(c), true
		}
	}
	if v, ok := c.Handle.Get(path); ok {
		return v, true
	}
	if v, ok := c.injected[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return c.instanceValue(path)
	}
	return nil, false
}

// Set writes a path on the instance: through an accessor's setter when one
// exists for the name, otherwise into the reactive store.
func (c *Context) Set(path string, value any) {
	if !strings.Contains(path, ".") {
		if acc, ok := c.computed[path]; ok && acc.Set != nil {
			acc.Set(c, value)
			return
		}
		if acc, ok := c.accessors[path]; ok && acc.Set != nil {
			acc.Set(c, value)
			return
		}
	}
	c.Handle.Set(path, value)
}

// Mod returns the declared default of a modifier.
func (c *Context) Mod(name string) (string, bool) {
	return c.Meta.Mod(name)
}

// Injected returns a value provided by an ancestor component.
func (c *Context) Injected(key string) (any, bool) {
	v, ok := c.injected[key]
	return v, ok
}

// Emit fires a custom event on the instance's emitter.
func (c *Context) Emit(event string, args ...any) {
	c.Handle.Emitter().Emit(event, args...)
}

// On subscribes to a custom event on the instance. Context satisfies
// async.EventSource so an instance can be the target of custom watchers.
func (c *Context) On(event string, handler func(args ...any)) (off func()) {
	return c.Handle.Emitter().On(event, handler)
}

// Once subscribes to a custom event to fire at most once.
func (c *Context) Once(event string, handler func(args ...any)) (off func()) {
	return c.Handle.Emitter().Once(event, handler)
}

// CallMethod resolves a method by name (declared, reflected from the
// prototype, or an accessor proxy) and invokes it.
func (c *Context) CallMethod(name string, args ...any) (any, bool) {
	mt, ok := c.method(name)
	if !ok {
		return nil, false
	}
	return mt.Call(c, args...), true
}

// method resolves a method through the per-instance meta chain, falling
// back to reflection over the prototype instance.
func (c *Context) method(name string) (*Method, bool) {
	if mt, ok := c.Meta.MethodByName(name); ok {
		return mt, true
	}
	if c.Instance == nil {
		return nil, false
	}
	rv := reflect.ValueOf(c.Instance).MethodByName(upperFirst(name))
	if !rv.IsValid() {
		return nil, false
	}
	return &Method{Name: name, rv: rv}, true
}

// instanceValue reads an exported struct field of the prototype instance.
func (c *Context) instanceValue(name string) (any, bool) {
	if c.Instance == nil {
		return nil, false
	}
	rv := reflect.ValueOf(c.Instance)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	fv := rv.FieldByName(upperFirst(name))
	if !fv.IsValid() || !fv.CanInterface() {
		return nil, false
	}
	return fv.Interface(), true
}

// transition moves the instance to the next lifecycle state. Illegal
// transitions are reported, not fatal: the engine drives the lifecycle and
// the runtime follows.
func (c *Context) transition(to Stage) {
	if to == StageErrorCaptured {
		return
	}
	if !CanTransition(c.Stage, to) {
		errors.Report(&errors.BlockError{
			Op:        "component.transition",
			Kind:      errors.KindEngine,
			Component: c.Name,
			Err:       &illegalTransitionError{from: c.Stage, to: to},
			Timestamp: time.Now(),
		})
	}
	c.Stage = to
}

type illegalTransitionError struct {
	from, to Stage
}

func (e *illegalTransitionError) Error() string {
	return "illegal lifecycle transition " + string(e.from) + " -> " + string(e.to)
}

// markBound records a watcher as attached, refusing double attachment.
func (c *Context) markBound(w *Watcher) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound[w] {
		return false
	}
	if c.bound == nil {
		c.bound = make(map[*Watcher]bool)
	}
	c.bound[w] = true
	return true
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
