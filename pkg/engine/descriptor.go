// Package engine defines the boundary between the Blocks runtime and a host
// rendering engine: the lifecycle descriptor a component compiles down to,
// the reactive watch and event primitives the runtime consumes, and an
// in-process reference engine used by the test suite and examples.
package engine

// LifecycleFn is a lifecycle callback invoked with engine's instance handle.
type LifecycleFn func(h Handle)

// DataFn produces the instance's initial data object.
type DataFn func(h Handle) map[string]any

// ErrorFn handles an error captured from a descendant. Returning true stops
// propagation to further ancestors.
type ErrorFn func(h Handle, err error) bool

// RenderFn produces the instance's render output. The runtime treats the
// result as opaque; diffing and patching belong to the host engine.
type RenderFn func(h Handle) any

// Descriptor is the imperative component shape consumed by a rendering
// engine. The Blocks adapter produces one Descriptor per component class;
// the engine instantiates it any number of times.
type Descriptor struct {
	Name       string
	Functional bool

	Props   map[string]PropSpec
	Model   *ModelSpec
	Provide map[string]any
	Inject  []string
	Mods    map[string]string

	Data DataFn

	BeforeCreate  LifecycleFn
	Created       LifecycleFn
	BeforeMount   LifecycleFn
	Mounted       LifecycleFn
	BeforeUpdate  LifecycleFn
	Updated       LifecycleFn
	Activated     LifecycleFn
	Deactivated   LifecycleFn
	BeforeDestroy LifecycleFn
	Destroyed     LifecycleFn
	ErrorCaptured ErrorFn

	Render RenderFn
}

// PropSpec describes one declared prop. When Factory is non-nil the engine
// must invoke it once per instance to obtain the default; Default is then
// ignored. Functional descriptors never carry factories: the adapter strips
// them so the engine cannot mistake a factory for a literal default.
type PropSpec struct {
	Required bool
	Default  any
	Factory  func() any
}

// ModelSpec names the prop and event used for two-way model binding.
type ModelSpec struct {
	Prop  string
	Event string
}

// WatchOptions configure a reactive path watch.
type WatchOptions struct {
	// Deep also fires the handler when a nested path under the watched
	// path changes.
	Deep bool
	// Immediate fires the handler once at attach time with the current
	// value.
	Immediate bool
}

// WatchHandler receives the new and previous value of a watched path.
type WatchHandler func(value, old any)

// Handle is the per-instance surface a rendering engine exposes to the
// runtime inside lifecycle callbacks.
type Handle interface {
	// Name returns the component name.
	Name() string
	// Parent returns the parent instance handle, or nil at the root.
	Parent() Handle
	// Descriptor returns the descriptor this instance was created from.
	Descriptor() *Descriptor
	// Context returns runtime state previously attached with SetContext.
	Context() any
	// SetContext attaches opaque runtime state to the instance.
	SetContext(ctx any)
	// Emitter returns the instance's event emitter.
	Emitter() *Emitter
	// Get resolves a dot-separated path in the instance's reactive store.
	Get(path string) (any, bool)
	// Set writes a dot-separated path and notifies watchers.
	Set(path string, value any)
	// Watch subscribes a handler to changes of a path.
	// The returned function unsubscribes.
	Watch(path string, opts WatchOptions, handler WatchHandler) (off func())
}
