package engine

import (
	"strings"
	"sync"

	"github.com/go-drift/blocks/pkg/errors"
)

// InProc is an in-process reference engine. It drives the full lifecycle
// over descriptors, keeps a reactive store per instance, and defers
// micro-tasks on a flushable queue. It exists so the runtime is runnable
// and testable without a real renderer; a production engine replaces it.
type InProc struct {
	mu    sync.Mutex
	queue []func()
}

// NewInProc creates a reference engine.
func NewInProc() *InProc {
	return &InProc{}
}

// Schedule queues a micro-task. Pass this to async.RegisterScheduler to give
// the runtime deferred scheduling semantics.
func (e *InProc) Schedule(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
}

// Flush runs queued micro-tasks until the queue is empty. Tasks scheduled
// while flushing run in the same flush. A panicking task is reported to the
// error sink and does not abort the rest of the flush.
func (e *InProc) Flush() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		fn := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		runTask(fn)
	}
}

func runTask(fn func()) {
	defer errors.Recover("engine.flush")
	fn()
}

// ComponentOption configures a new component instance.
type ComponentOption func(*Node)

// WithParent attaches the instance under a parent instance.
func WithParent(parent *Node) ComponentOption {
	return func(n *Node) {
		n.parent = parent
		if parent != nil {
			parent.children = append(parent.children, n)
		}
	}
}

// WithProps supplies prop values, overriding declared defaults.
func WithProps(props map[string]any) ComponentOption {
	return func(n *Node) {
		for k, v := range props {
			n.setQuiet(k, v)
		}
	}
}

// NewComponent instantiates a descriptor. Prop defaults (invoking factories
// per instance) are populated before any option runs.
func (e *InProc) NewComponent(desc *Descriptor, opts ...ComponentOption) *Node {
	n := &Node{
		engine:  e,
		desc:    desc,
		emitter: NewEmitter(),
		store:   make(map[string]any),
	}
	for name, spec := range desc.Props {
		if spec.Factory != nil {
			n.setQuiet(name, spec.Factory())
		} else if spec.Default != nil {
			n.setQuiet(name, spec.Default)
		}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Node is one live component instance inside the reference engine.
type Node struct {
	engine    *InProc
	desc      *Descriptor
	parent    *Node
	children  []*Node
	ctx       any
	emitter   *Emitter
	store     map[string]any
	watchers  []*pathWatcher
	mounted   bool
	destroyed bool
	mu        sync.Mutex
}

type pathWatcher struct {
	path    string
	deep    bool
	handler WatchHandler
	dead    bool
}

func (n *Node) Name() string            { return n.desc.Name }
func (n *Node) Descriptor() *Descriptor { return n.desc }
func (n *Node) Context() any            { return n.ctx }
func (n *Node) SetContext(ctx any)      { n.ctx = ctx }
func (n *Node) Emitter() *Emitter       { return n.emitter }

func (n *Node) Parent() Handle {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Get resolves a dot-separated path in the instance store.
func (n *Node) Get(path string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return lookupPath(n.store, path)
}

// Set writes a dot-separated path and fires affected watchers.
func (n *Node) Set(path string, value any) {
	n.mu.Lock()
	old, _ := lookupPath(n.store, path)
	writePath(n.store, path, value)

	type firing struct {
		handler    WatchHandler
		value, old any
	}
	var fire []firing
	for _, w := range n.watchers {
		if w.dead {
			continue
		}
		switch {
		case w.path == path:
			fire = append(fire, firing{w.handler, value, old})
		case w.deep && strings.HasPrefix(path, w.path+"."):
			cur, _ := lookupPath(n.store, w.path)
			fire = append(fire, firing{w.handler, cur, cur})
		case strings.HasPrefix(w.path, path+"."):
			// An ancestor was replaced wholesale; re-resolve the leaf.
			cur, _ := lookupPath(n.store, w.path)
			fire = append(fire, firing{w.handler, cur, nil})
		}
	}
	n.mu.Unlock()

	for _, f := range fire {
		f.handler(f.value, f.old)
	}
}

// setQuiet writes without notifying watchers (initial data population).
func (n *Node) setQuiet(path string, value any) {
	n.mu.Lock()
	writePath(n.store, path, value)
	n.mu.Unlock()
}

// Watch subscribes a handler to changes of path.
func (n *Node) Watch(path string, opts WatchOptions, handler WatchHandler) (off func()) {
	w := &pathWatcher{path: path, deep: opts.Deep, handler: handler}
	n.mu.Lock()
	n.watchers = append(n.watchers, w)
	n.mu.Unlock()

	if opts.Immediate {
		cur, _ := n.Get(path)
		handler(cur, nil)
	}
	return func() {
		n.mu.Lock()
		w.dead = true
		n.mu.Unlock()
	}
}

// WatcherCount returns the number of live path watchers on the instance.
func (n *Node) WatcherCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, w := range n.watchers {
		if !w.dead {
			c++
		}
	}
	return c
}

// Mount drives the instance from beforeCreate through mounted, flushing the
// micro-task queue after every stage.
func (n *Node) Mount() {
	n.invoke(n.desc.BeforeCreate)
	if n.desc.Data != nil {
		for k, v := range n.desc.Data(n) {
			n.setQuiet(k, v)
		}
	}
	n.invoke(n.desc.Created)
	n.invoke(n.desc.BeforeMount)
	n.mounted = true
	n.invoke(n.desc.Mounted)
}

// Update drives one beforeUpdate/updated cycle.
func (n *Node) Update() {
	n.invoke(n.desc.BeforeUpdate)
	n.invoke(n.desc.Updated)
}

// Activate fires the activated stage (keep-alive reinsertion).
func (n *Node) Activate() {
	n.invoke(n.desc.Activated)
}

// Deactivate fires the deactivated stage.
func (n *Node) Deactivate() {
	n.invoke(n.desc.Deactivated)
}

// Destroy drives beforeDestroy and destroyed, destroying children between
// the two, then drops the instance's watchers.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.destroyed = true
	n.invoke(n.desc.BeforeDestroy)
	for _, child := range n.children {
		child.Destroy()
	}
	n.invoke(n.desc.Destroyed)

	n.mu.Lock()
	n.watchers = nil
	n.mu.Unlock()
}

// Mounted reports whether the instance reached the mounted stage.
func (n *Node) Mounted() bool { return n.mounted }

// Destroyed reports whether destruction has begun.
func (n *Node) Destroyed() bool { return n.destroyed }

// Render invokes the descriptor's render function, if any.
func (n *Node) Render() any {
	if n.desc.Render == nil {
		return nil
	}
	return n.desc.Render(n)
}

// CaptureError offers err to this instance and then to its ancestors until
// an errorCaptured callback claims it. Reports whether it was claimed.
func (n *Node) CaptureError(err error) bool {
	for node := n; node != nil; node = node.parent {
		if node.desc.ErrorCaptured != nil && node.desc.ErrorCaptured(node, err) {
			return true
		}
	}
	return false
}

func (n *Node) invoke(fn LifecycleFn) {
	if fn != nil {
		fn(n)
	}
	n.engine.Flush()
}

// lookupPath resolves a dot-separated path in nested string-keyed maps.
func lookupPath(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// writePath writes a dot-separated path, creating intermediate maps.
func writePath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for i := 0; i < len(parts)-1; i++ {
		next, ok := m[parts[i]].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[parts[i]] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}
