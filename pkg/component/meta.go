package component

import (
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/go-drift/blocks/pkg/async"
	"github.com/go-drift/blocks/pkg/engine"
)

// Factory marks a default value that must be produced per instance rather
// than shared. It survives into the engine descriptor for full components
// and is stripped (evaluated once) for functional components.
type Factory func() any

// InitFn computes a field's initial value from the context and the data
// object built so far. Returning ok=false means "no value": the field falls
// back to its static default or the prototype instance's value.
type InitFn func(ctx *Context, data map[string]any) (value any, ok bool)

// Field describes one prop, field, or system field of a component.
type Field struct {
	Name string
	// Default is the static default value. A Factory default is invoked
	// per instance; anything else is deep-cloned.
	Default any
	// Init computes the value, overriding Default unless it returns
	// ok=false.
	Init InitFn
	// After names fields that must be initialized before this one.
	After map[string]struct{}
	// Atom schedules the field before all non-atomic fields. An atomic
	// field may only depend on other atomic fields.
	Atom bool
	// Required applies to props only.
	Required bool
}

// HookFn is a lifecycle hook body. Returning nil means the hook completed
// immediately; returning a completion defers the hook's completion (and
// that of any hook ordered after it) until the completion settles.
type HookFn func(ctx *Context, args ...any) *async.Completion

// Hook describes one callback registered for a lifecycle stage.
type Hook struct {
	Name string
	Fn   HookFn
	// After names hooks within the same stage that must complete first.
	After map[string]struct{}
}

// Handler is the tagged handler of a watcher. One of MethodName, BoundFn,
// FreeFn, or DeferredHandler.
type Handler interface{ isHandler() }

// MethodName is a handler resolved dynamically by method name at fire time.
// Firing fails loudly with a MissingMethodError if the method is absent.
type MethodName string

func (MethodName) isHandler() {}

// BoundFn is a handler declared as a component method: it is already bound
// to its component and receives only the event arguments.
type BoundFn func(args ...any)

func (BoundFn) isHandler() {}

// FreeFn is a free-function handler: the component context is passed as its
// first explicit argument.
type FreeFn func(ctx *Context, args ...any)

func (FreeFn) isHandler() {}

// DeferredHandler wraps a completion that resolves to a Handler. The watcher
// binds once the completion settles; events emitted before that are lost.
type DeferredHandler struct {
	C *async.Completion
}

func (DeferredHandler) isHandler() {}

// Watcher describes one subscription on a watched key. The key grammar
// decides the kind: keys of the form "[!|?][path]:event" subscribe to a
// custom event (on ctx, or on the object found by path lookup), plain keys
// watch a reactive path on the instance itself.
type Watcher struct {
	Handler Handler
	// Group names the async resource group; empty means "watchers".
	Group string
	// Single subscribes the handler to fire at most once.
	Single bool
	// Deep and Immediate apply to reactive path watchers.
	Deep      bool
	Immediate bool
	// Options carries engine-specific extras, passed through untouched.
	Options map[string]any
	// ProvideArgs forwards event arguments to the handler. Watchers built
	// by the declaration default to forwarding.
	ProvideArgs bool
	// Wrapper, when set, wraps the prepared handler at bind time.
	Wrapper func(ctx *Context, fire func(args ...any)) func(args ...any)
	// Args are appended to every handler invocation.
	Args []any
}

// Method describes one component method together with the watchers and
// hooks attached to it at declaration time.
type Method struct {
	Name string
	// fn is a method declared through the Declaration.
	fn func(ctx *Context, args ...any) any
	// rv is a bound method discovered by AddMethods via reflection.
	rv reflect.Value

	Watchers map[string]*Watcher
	Hooks    map[Stage]*Hook
}

// Call invokes the method. Declared methods are called directly; reflected
// methods are invoked with best-effort argument conversion.
func (m *Method) Call(ctx *Context, args ...any) any {
	if m.fn != nil {
		return m.fn(ctx, args...)
	}
	if !m.rv.IsValid() {
		return nil
	}
	t := m.rv.Type()
	// A reflected method whose first parameter is *Context is bound to the
	// shared prototype; hand it the instance context.
	if t.NumIn() > 0 && t.In(0) == contextType && !leadsWithContext(args) {
		args = append([]any{ctx}, args...)
	}
	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		if t.IsVariadic() && i >= t.NumIn()-1 {
			in = append(in, reflect.ValueOf(arg))
			continue
		}
		if i >= t.NumIn() {
			break
		}
		if arg == nil {
			in = append(in, reflect.Zero(t.In(i)))
			continue
		}
		v := reflect.ValueOf(arg)
		if v.Type().ConvertibleTo(t.In(i)) {
			v = v.Convert(t.In(i))
		}
		in = append(in, v)
	}
	for len(in) < t.NumIn() && !t.IsVariadic() {
		in = append(in, reflect.Zero(t.In(len(in))))
	}
	out := m.rv.Call(in)
	if len(out) == 0 {
		return nil
	}
	return out[0].Interface()
}

var contextType = reflect.TypeOf((*Context)(nil))

func leadsWithContext(args []any) bool {
	if len(args) == 0 {
		return false
	}
	_, ok := args[0].(*Context)
	return ok
}

// Accessor is a get/set function pair.
type Accessor struct {
	Name string
	Get  func(ctx *Context) any
	Set  func(ctx *Context, value any)
}

// Params is the declared configuration of a component class.
type Params struct {
	Functional bool
	Provide    map[string]any
	Inject     []string
	Model      *engine.ModelSpec
}

// Meta is the metadata record of a component class. It is immutable after
// Register and shared by every instance of the class; subclasses read
// through to it via layered lookup. Hook and watcher lists are eagerly
// copied at creation so a child's mutations never touch the parent.
type Meta struct {
	ComponentName string
	Params        Params

	parent *Meta

	Props        map[string]*Field
	Fields       map[string]*Field
	SystemFields map[string]*Field
	Methods      map[string]*Method
	Computed     map[string]*Accessor
	Accessors    map[string]*Accessor
	Watchers     map[string][]*Watcher
	Hooks        map[Stage][]*Hook
	Mods         map[string]string

	// demoted marks prop/field names shadowed by a same-named method or
	// accessor on this layer.
	demoted map[string]bool
}

// NewMeta creates a child metadata record. Hook and watcher lists are
// independent shallow copies of the parent's; everything else is read
// through to the parent when absent from the child.
func NewMeta(parent *Meta) *Meta {
	m := &Meta{
		parent:       parent,
		Props:        make(map[string]*Field),
		Fields:       make(map[string]*Field),
		SystemFields: make(map[string]*Field),
		Methods:      make(map[string]*Method),
		Computed:     make(map[string]*Accessor),
		Accessors:    make(map[string]*Accessor),
		Watchers:     make(map[string][]*Watcher),
		Hooks:        make(map[Stage][]*Hook),
		Mods:         make(map[string]string),
		demoted:      make(map[string]bool),
	}
	if parent != nil {
		m.ComponentName = parent.ComponentName
		m.Params = parent.Params
		// Provide and Inject are mutated in place by the declaration, so the
		// child needs its own copies or it would write through to the parent.
		if parent.Params.Provide != nil {
			m.Params.Provide = make(map[string]any, len(parent.Params.Provide))
			for k, v := range parent.Params.Provide {
				m.Params.Provide[k] = v
			}
		}
		m.Params.Inject = append([]string(nil), parent.Params.Inject...)
		for stage, hooks := range parent.Hooks {
			m.Hooks[stage] = append([]*Hook(nil), hooks...)
		}
		for key, watchers := range parent.Watchers {
			m.Watchers[key] = append([]*Watcher(nil), watchers...)
		}
	}
	return m
}

// Parent returns the parent metadata record, or nil.
func (m *Meta) Parent() *Meta { return m.parent }

// Prop resolves a prop by name through the parent chain.
func (m *Meta) Prop(name string) (*Field, bool) { return lookupField(m, name, propsOf) }

// FieldByName resolves an ordinary field by name through the parent chain.
func (m *Meta) FieldByName(name string) (*Field, bool) { return lookupField(m, name, fieldsOf) }

// SystemField resolves a system field by name through the parent chain.
func (m *Meta) SystemField(name string) (*Field, bool) { return lookupField(m, name, systemOf) }

func propsOf(m *Meta) map[string]*Field  { return m.Props }
func fieldsOf(m *Meta) map[string]*Field { return m.Fields }
func systemOf(m *Meta) map[string]*Field { return m.SystemFields }

func lookupField(m *Meta, name string, sel func(*Meta) map[string]*Field) (*Field, bool) {
	for ; m != nil; m = m.parent {
		if m.demoted[name] {
			return nil, false
		}
		if f, ok := sel(m)[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// MethodByName resolves a method by name through the parent chain.
func (m *Meta) MethodByName(name string) (*Method, bool) {
	for ; m != nil; m = m.parent {
		if mt, ok := m.Methods[name]; ok {
			return mt, true
		}
	}
	return nil, false
}

// ComputedAt resolves a computed accessor by name through the parent chain.
func (m *Meta) ComputedAt(name string) (*Accessor, bool) {
	for ; m != nil; m = m.parent {
		if a, ok := m.Computed[name]; ok {
			return a, true
		}
	}
	return nil, false
}

// AccessorAt resolves a plain accessor by name through the parent chain.
func (m *Meta) AccessorAt(name string) (*Accessor, bool) {
	for ; m != nil; m = m.parent {
		if a, ok := m.Accessors[name]; ok {
			return a, true
		}
	}
	return nil, false
}

// Mod resolves a modifier default through the parent chain.
func (m *Meta) Mod(name string) (string, bool) {
	for ; m != nil; m = m.parent {
		if v, ok := m.Mods[name]; ok {
			return v, true
		}
	}
	return "", false
}

// HookList returns the hooks for a stage. The list already contains the
// inherited copies made by NewMeta.
func (m *Meta) HookList(stage Stage) []*Hook { return m.Hooks[stage] }

// AllProps merges props through the parent chain, nearest layer winning.
func (m *Meta) AllProps() map[string]*Field { return mergeFields(m, propsOf) }

// AllFields merges ordinary fields through the parent chain.
func (m *Meta) AllFields() map[string]*Field { return mergeFields(m, fieldsOf) }

// AllSystemFields merges system fields through the parent chain.
func (m *Meta) AllSystemFields() map[string]*Field { return mergeFields(m, systemOf) }

func mergeFields(m *Meta, sel func(*Meta) map[string]*Field) map[string]*Field {
	var layers []*Meta
	for cur := m; cur != nil; cur = cur.parent {
		layers = append(layers, cur)
	}
	out := make(map[string]*Field)
	for i := len(layers) - 1; i >= 0; i-- {
		for name, f := range sel(layers[i]) {
			out[name] = f
		}
		// A demotion shadows this layer's own entry and anything inherited
		// from above it. A nearer child redeclaring the name wins again.
		for name := range layers[i].demoted {
			delete(out, name)
		}
	}
	return out
}

// AllMethods merges methods through the parent chain.
func (m *Meta) AllMethods() map[string]*Method {
	var layers []*Meta
	for cur := m; cur != nil; cur = cur.parent {
		layers = append(layers, cur)
	}
	out := make(map[string]*Method)
	for i := len(layers) - 1; i >= 0; i-- {
		for name, mt := range layers[i].Methods {
			out[name] = mt
		}
	}
	return out
}

// AllComputed merges computed accessors through the parent chain.
func (m *Meta) AllComputed() map[string]*Accessor { return mergeAccessors(m, func(m *Meta) map[string]*Accessor { return m.Computed }) }

// AllAccessors merges plain accessors through the parent chain.
func (m *Meta) AllAccessors() map[string]*Accessor { return mergeAccessors(m, func(m *Meta) map[string]*Accessor { return m.Accessors }) }

func mergeAccessors(m *Meta, sel func(*Meta) map[string]*Accessor) map[string]*Accessor {
	var layers []*Meta
	for cur := m; cur != nil; cur = cur.parent {
		layers = append(layers, cur)
	}
	out := make(map[string]*Accessor)
	for i := len(layers) - 1; i >= 0; i-- {
		for name, a := range sel(layers[i]) {
			out[name] = a
		}
	}
	return out
}

// AllMods merges modifier defaults through the parent chain.
func (m *Meta) AllMods() map[string]string {
	var layers []*Meta
	for cur := m; cur != nil; cur = cur.parent {
		layers = append(layers, cur)
	}
	out := make(map[string]string)
	for i := len(layers) - 1; i >= 0; i-- {
		for name, v := range layers[i].Mods {
			out[name] = v
		}
	}
	return out
}

// AddMethods scans proto's own methods (skipping those promoted from Base)
// and merges them into the metadata: each becomes an ordinary Method, any
// same-named prop or field is demoted (a method always wins), and every
// accessor gains "<name>Getter"/"<name>Setter" proxy methods so the watcher
// and hook machinery can target accessors uniformly.
func AddMethods(proto Block, m *Meta) {
	skip := baseMethodNames()
	v := reflect.ValueOf(proto)
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		if skip[name] {
			continue
		}
		metaName := lowerFirst(name)
		if _, declared := m.Methods[metaName]; declared {
			continue
		}
		m.Methods[metaName] = &Method{Name: metaName, rv: v.Method(i)}
		demoteField(m, metaName)
	}

	for name, acc := range m.AllAccessors() {
		addAccessorProxies(m, name, acc)
	}
	for name, acc := range m.AllComputed() {
		addAccessorProxies(m, name, acc)
	}
}

func addAccessorProxies(m *Meta, name string, acc *Accessor) {
	demoteField(m, name)
	get := acc.Get
	set := acc.Set
	if _, ok := m.Methods[name+"Getter"]; !ok {
		m.Methods[name+"Getter"] = &Method{
			Name: name + "Getter",
			fn: func(ctx *Context, args ...any) any {
				if get == nil {
					return nil
				}
				return get(ctx)
			},
		}
	}
	if _, ok := m.Methods[name+"Setter"]; !ok {
		m.Methods[name+"Setter"] = &Method{
			Name: name + "Setter",
			fn: func(ctx *Context, args ...any) any {
				if set != nil && len(args) > 0 {
					set(ctx, args[0])
				}
				return nil
			},
		}
	}
}

func demoteField(m *Meta, name string) {
	if _, ok := m.Prop(name); ok {
		m.demoted[name] = true
		return
	}
	if _, ok := m.FieldByName(name); ok {
		m.demoted[name] = true
	}
}

// baseMethodNames returns the method names promoted from Base embeds.
func baseMethodNames() map[string]bool {
	names := make(map[string]bool)
	t := reflect.TypeOf(&Base{})
	for i := 0; i < t.NumMethod(); i++ {
		names[t.Method(i).Name] = true
	}
	return names
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
