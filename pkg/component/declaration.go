package component

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/go-drift/blocks/pkg/async"
	"github.com/go-drift/blocks/pkg/engine"
	"github.com/go-drift/blocks/pkg/errors"
)

// Declaration collects a component class's declarative metadata: props,
// fields, watchers, hooks, methods, accessors, and params. A component
// implements Declare(d) and records everything on d; Register processes the
// declaration deterministically into the class Meta. There is no global
// registration bus: what is not declared here (or discovered by AddMethods)
// does not exist.
type Declaration struct {
	meta *Meta
	errs *multierror.Error
}

func newDeclaration(m *Meta) *Declaration {
	return &Declaration{meta: m}
}

// Name overrides the component name recorded on the class metadata. The
// registration key still serves as the lookup alias.
func (d *Declaration) Name(name string) *Declaration {
	d.meta.ComponentName = name
	return d
}

// Functional declares the component functional: it compiles to a reduced
// descriptor exposing only props, name, and a render function.
func (d *Declaration) Functional() *Declaration {
	d.meta.Params.Functional = true
	return d
}

// Model binds a prop/event pair for two-way model binding.
func (d *Declaration) Model(prop, event string) *Declaration {
	d.meta.Params.Model = &engine.ModelSpec{Prop: prop, Event: event}
	return d
}

// Provide exposes a value to descendant components.
func (d *Declaration) Provide(key string, value any) *Declaration {
	if d.meta.Params.Provide == nil {
		d.meta.Params.Provide = make(map[string]any)
	}
	d.meta.Params.Provide[key] = value
	return d
}

// Inject requests values provided by ancestor components.
func (d *Declaration) Inject(keys ...string) *Declaration {
	d.meta.Params.Inject = append(d.meta.Params.Inject, keys...)
	return d
}

// FieldOption configures a declared prop or field.
type FieldOption func(*Field)

// Default sets the static default value, deep-cloned per instance.
func Default(v any) FieldOption {
	return func(f *Field) { f.Default = v }
}

// DefaultFactory sets a per-instance default factory.
func DefaultFactory(fn func() any) FieldOption {
	return func(f *Field) { f.Default = Factory(fn) }
}

// Init sets the field's init callback.
func Init(fn InitFn) FieldOption {
	return func(f *Field) { f.Init = fn }
}

// After declares fields that must initialize before this one.
func After(names ...string) FieldOption {
	return func(f *Field) {
		if f.After == nil {
			f.After = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			f.After[n] = struct{}{}
		}
	}
}

// Atom schedules the field before all non-atomic fields.
func Atom() FieldOption {
	return func(f *Field) { f.Atom = true }
}

// Required marks a prop as required.
func Required() FieldOption {
	return func(f *Field) { f.Required = true }
}

// Prop declares an input prop.
func (d *Declaration) Prop(name string, opts ...FieldOption) *Declaration {
	d.meta.Props[name] = buildField(name, opts)
	return d
}

// Field declares an ordinary reactive field.
func (d *Declaration) Field(name string, opts ...FieldOption) *Declaration {
	d.meta.Fields[name] = buildField(name, opts)
	return d
}

// SystemField declares a field initialized before the beforeCreate stage,
// outside the main data factory.
func (d *Declaration) SystemField(name string, opts ...FieldOption) *Declaration {
	d.meta.SystemFields[name] = buildField(name, opts)
	return d
}

func buildField(name string, opts []FieldOption) *Field {
	f := &Field{Name: name}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Computed declares a computed accessor pair.
func (d *Declaration) Computed(name string, get func(*Context) any, set func(*Context, any)) *Declaration {
	d.meta.Computed[name] = &Accessor{Name: name, Get: get, Set: set}
	return d
}

// Accessor declares a plain accessor pair.
func (d *Declaration) Accessor(name string, get func(*Context) any, set func(*Context, any)) *Declaration {
	d.meta.Accessors[name] = &Accessor{Name: name, Get: get, Set: set}
	return d
}

// Mod declares a modifier with its default value.
func (d *Declaration) Mod(name, def string) *Declaration {
	d.meta.Mods[name] = def
	return d
}

// WatchOption configures a declared watcher.
type WatchOption func(*Watcher)

// InGroup tracks the subscription under the named async group.
func InGroup(name string) WatchOption {
	return func(w *Watcher) { w.Group = name }
}

// Single fires the handler at most once.
func Single() WatchOption {
	return func(w *Watcher) { w.Single = true }
}

// Deep also fires on nested changes under the watched path.
func Deep() WatchOption {
	return func(w *Watcher) { w.Deep = true }
}

// Immediate fires the handler once at attach time.
func Immediate() WatchOption {
	return func(w *Watcher) { w.Immediate = true }
}

// NoArgs suppresses event-argument forwarding for this watcher.
func NoArgs() WatchOption {
	return func(w *Watcher) { w.ProvideArgs = false }
}

// WrapWith wraps the prepared handler at bind time.
func WrapWith(wrap func(ctx *Context, fire func(args ...any)) func(args ...any)) WatchOption {
	return func(w *Watcher) { w.Wrapper = wrap }
}

// WithArgs appends extra arguments to every handler invocation.
func WithArgs(args ...any) WatchOption {
	return func(w *Watcher) { w.Args = append(w.Args, args...) }
}

// WithOption passes an engine-specific watch option through untouched.
func WithOption(key string, value any) WatchOption {
	return func(w *Watcher) {
		if w.Options == nil {
			w.Options = make(map[string]any)
		}
		w.Options[key] = value
	}
}

// Watch registers a watcher on a key. Keys of the form "[!|?][path]:event"
// subscribe to custom events ("!" binds during beforeCreate, no marker at
// created, "?" at mounted); plain keys watch a reactive path, attached at
// mounted.
func (d *Declaration) Watch(key string, handler Handler, opts ...WatchOption) *Declaration {
	if handler == nil {
		d.errs = multierror.Append(d.errs,
			fmt.Errorf("%s: watcher %q has no handler", d.meta.ComponentName, key))
		return d
	}
	w := &Watcher{Handler: handler, ProvideArgs: true}
	for _, opt := range opts {
		opt(w)
	}
	d.meta.Watchers[key] = append(d.meta.Watchers[key], w)
	return d
}

// HookOption configures a declared hook.
type HookOption func(*Hook)

// AfterHook declares hooks within the same stage that must complete first.
func AfterHook(names ...string) HookOption {
	return func(h *Hook) {
		if h.After == nil {
			h.After = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			h.After[n] = struct{}{}
		}
	}
}

// Hook registers a named callback for a lifecycle stage. An empty name gets
// a generated one; names must be unique within a stage for "after" edges to
// resolve.
func (d *Declaration) Hook(stage Stage, name string, fn HookFn, opts ...HookOption) *Declaration {
	if name == "" {
		name = fmt.Sprintf("%s:%d", stage, len(d.meta.Hooks[stage]))
	}
	h := &Hook{Name: name, Fn: fn}
	for _, opt := range opts {
		opt(h)
	}
	d.meta.Hooks[stage] = append(d.meta.Hooks[stage], h)
	return d
}

// MethodOption attaches watchers or hooks to a declared method.
type MethodOption func(*Method)

// MethodWatch fires the method when the key changes.
func MethodWatch(key string, opts ...WatchOption) MethodOption {
	return func(m *Method) {
		if m.Watchers == nil {
			m.Watchers = make(map[string]*Watcher)
		}
		w := &Watcher{ProvideArgs: true}
		for _, opt := range opts {
			opt(w)
		}
		m.Watchers[key] = w
	}
}

// MethodHook fires the method at the given lifecycle stage.
func MethodHook(stage Stage, opts ...HookOption) MethodOption {
	return func(m *Method) {
		if m.Hooks == nil {
			m.Hooks = make(map[Stage]*Hook)
		}
		h := &Hook{}
		for _, opt := range opts {
			opt(h)
		}
		m.Hooks[stage] = h
	}
}

// Method declares a method callable by name from watchers and hooks.
// A method with the same name as a prop or field demotes the field.
func (d *Declaration) Method(name string, fn func(ctx *Context, args ...any) any, opts ...MethodOption) *Declaration {
	m := &Method{Name: name, fn: fn}
	for _, opt := range opts {
		opt(m)
	}
	d.meta.Methods[name] = m
	demoteField(d.meta, name)
	return d
}

// build merges method-attached watchers and hooks into the main maps and
// validates the declaration, aggregating every definition problem.
func (d *Declaration) build() error {
	m := d.meta

	for name, method := range m.Methods {
		for key, w := range method.Watchers {
			bound := *w
			bound.Handler = MethodName(name)
			m.Watchers[key] = append(m.Watchers[key], &bound)
		}
		for stage, h := range method.Hooks {
			methodName := name
			hook := &Hook{
				Name:  name,
				After: h.After,
				Fn: func(ctx *Context, args ...any) *async.Completion {
					return callMethodAsHook(ctx, methodName, args)
				},
			}
			m.Hooks[stage] = append(m.Hooks[stage], hook)
		}
	}

	errs := d.errs
	errs = multierror.Append(errs, validateFields(m.ComponentName, m.AllProps())...)
	errs = multierror.Append(errs, validateFields(m.ComponentName, m.AllFields())...)
	errs = multierror.Append(errs, validateFields(m.ComponentName, m.AllSystemFields())...)
	return errs.ErrorOrNil()
}

// validateFields checks after-references and atomic ordering inside one
// field collection.
func validateFields(component string, fields map[string]*Field) []error {
	var errs []error
	for name, f := range fields {
		for dep := range f.After {
			target, ok := fields[dep]
			if !ok {
				errs = append(errs, &errors.MissingFieldError{
					Component: component, Field: name, Missing: dep,
				})
				continue
			}
			if f.Atom && !target.Atom {
				errs = append(errs, &errors.AtomOrderError{
					Component: component, Field: name, Dependency: dep,
				})
			}
		}
	}
	return errs
}
