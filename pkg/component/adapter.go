package component

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/blocks/pkg/async"
	"github.com/go-drift/blocks/pkg/engine"
	"github.com/go-drift/blocks/pkg/errors"
	"github.com/go-drift/blocks/pkg/log"
)

// GetComponent compiles a metadata record and its prototype into the
// imperative descriptor a rendering engine consumes. The descriptor owns no
// state of its own; every lifecycle callback routes through the per-instance
// Context attached to the engine handle during beforeCreate.
func GetComponent(m *Meta, proto Block) *engine.Descriptor {
	d := &engine.Descriptor{
		Name:       m.ComponentName,
		Functional: m.Params.Functional,
		Props:      compileProps(m),
		Model:      m.Params.Model,
		Provide:    m.Params.Provide,
		Inject:     m.Params.Inject,
		Mods:       m.AllMods(),
	}
	if m.Params.Functional {
		return functionalDescriptor(m, proto, d)
	}

	d.Data = func(h engine.Handle) map[string]any {
		ctx := contextOf(h)
		if ctx == nil {
			panic(&errors.BlockError{
				Op:        "component.data",
				Kind:      errors.KindEngine,
				Component: m.ComponentName,
				Err:       errNoContext,
				Timestamp: time.Now(),
			})
		}
		ctx.Hook = StageBeforeDataCreate
		RunHook(StageBeforeDataCreate, ctx.Meta, ctx)
		data, err := InitDataObject(ctx.Meta.AllFields(), ctx, map[string]any{})
		if err != nil {
			// Misdeclared fields are a configuration error, not a runtime
			// condition: fail loudly at first instantiation.
			panic(err)
		}
		return data
	}

	d.BeforeCreate = func(h engine.Handle) {
		ctx := newInstanceContext(h, m, proto)
		h.SetContext(ctx)
		initSystemFields(ctx)
		runStage(ctx, StageBeforeCreate)
	}
	d.Created = stageCallback(StageCreated)
	d.BeforeMount = stageCallback(StageBeforeMount)
	d.Mounted = stageCallback(StageMounted)
	d.BeforeUpdate = stageCallback(StageBeforeUpdate)
	d.Updated = stageCallback(StageUpdated)
	d.Activated = stageCallback(StageActivated)
	d.Deactivated = stageCallback(StageDeactivated)

	d.BeforeDestroy = func(h engine.Handle) {
		ctx := contextOf(h)
		if ctx == nil {
			return
		}
		// Teardown waits for beforeDestroy hooks, then cancels every
		// tracked resource and locks the facility.
		runStage(ctx, StageBeforeDestroy).Finally(func() {
			ctx.Async.ClearAll()
		})
	}
	d.Destroyed = stageCallback(StageDestroyed)

	d.ErrorCaptured = func(h engine.Handle, err error) bool {
		ctx := contextOf(h)
		if ctx == nil {
			return false
		}
		prev := ctx.Hook
		ctx.Hook = StageErrorCaptured
		RunHook(StageErrorCaptured, ctx.Meta, ctx, err)
		claimed := false
		if ret, ok := callAuthor(ctx, StageErrorCaptured, err); ok {
			if b, isBool := ret.(bool); isBool {
				claimed = b
			}
		}
		ctx.Hook = prev
		return claimed
	}

	d.Render = func(h engine.Handle) any {
		ctx := contextOf(h)
		if ctx == nil {
			return nil
		}
		ret, _ := callAuthor(ctx, "render")
		return ret
	}

	return d
}

// Component compiles a registered class by name.
func Component(name string) (*engine.Descriptor, bool) {
	m, proto, ok := Lookup(name)
	if !ok {
		return nil, false
	}
	return GetComponent(m, proto), true
}

func contextOf(h engine.Handle) *Context {
	ctx, _ := h.Context().(*Context)
	return ctx
}

func stageCallback(s Stage) engine.LifecycleFn {
	return func(h engine.Handle) {
		if ctx := contextOf(h); ctx != nil {
			runStage(ctx, s)
		}
	}
}

// runStage advances the instance to a stage: the state transition first,
// then the stage's registered hooks, then the prototype's own lifecycle
// method, then any watchers whose attach point is this stage. The returned
// completion settles when the stage's hooks have completed.
func runStage(ctx *Context, s Stage) *async.Completion {
	ctx.transition(s)
	ctx.Hook = s
	c := RunHook(s, ctx.Meta, ctx)
	callAuthor(ctx, s)
	BindWatchers(ctx)
	return c
}

// callAuthor invokes the prototype's method for a lifecycle point, by its
// lower-camel stage name. Panics are reported and swallowed like any other
// hook failure.
func callAuthor(ctx *Context, name any, args ...any) (ret any, found bool) {
	var methodName string
	switch n := name.(type) {
	case Stage:
		methodName = string(n)
	case string:
		methodName = n
	}
	mt, ok := ctx.method(methodName)
	if !ok {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			reportHookFailure(ctx, ctx.Hook, methodName, r, nil)
			ret, found = nil, true
		}
	}()
	return mt.Call(ctx, args...), true
}

// newInstanceContext assembles the per-instance runtime state during
// beforeCreate: a fresh metadata layer, a fresh async facility, accessor
// tables, the nearest non-functional parent, and injected values resolved
// against ancestor providers.
func newInstanceContext(h engine.Handle, m *Meta, proto Block) *Context {
	ctx := &Context{
		ID:        uuid.NewString(),
		Name:      m.ComponentName,
		Meta:      NewMeta(m),
		Handle:    h,
		Parent:    resolveParent(h),
		Async:     async.NewAsync(),
		Instance:  proto,
		computed:  m.AllComputed(),
		accessors: m.AllAccessors(),
		injected:  resolveInject(h, m.Params.Inject),
	}
	log.Emit("component:create", ctx.Name, ctx.ID)
	return ctx
}

// resolveParent walks up the handle tree to the nearest non-functional
// ancestor's context. Functional instances are transparent to their
// descendants.
func resolveParent(h engine.Handle) *Context {
	for ph := h.Parent(); ph != nil; ph = ph.Parent() {
		if desc := ph.Descriptor(); desc != nil && desc.Functional {
			continue
		}
		if pctx, ok := ph.Context().(*Context); ok {
			return pctx
		}
	}
	return nil
}

// resolveInject satisfies each injected key from the closest ancestor that
// provides it. Unsatisfied keys are simply absent.
func resolveInject(h engine.Handle, keys []string) map[string]any {
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		for ph := h.Parent(); ph != nil; ph = ph.Parent() {
			desc := ph.Descriptor()
			if desc == nil || desc.Provide == nil {
				continue
			}
			if v, ok := desc.Provide[key]; ok {
				out[key] = v
				break
			}
		}
	}
	return out
}

// initSystemFields initializes the system field partition and writes it
// into the reactive store. System fields exist before the data object does,
// so beforeCreate hooks and "!" watchers can rely on them.
func initSystemFields(ctx *Context) {
	data, err := InitDataObject(ctx.Meta.AllSystemFields(), ctx, map[string]any{})
	if err != nil {
		panic(err)
	}
	for name, value := range data {
		ctx.Handle.Set(name, value)
	}
}

// compileProps flattens the inherited prop table into engine prop specs.
// Factory defaults stay lazy for regular components; functional descriptors
// evaluate them once so the engine sees only literals.
func compileProps(m *Meta) map[string]engine.PropSpec {
	props := m.AllProps()
	out := make(map[string]engine.PropSpec, len(props))
	for name, f := range props {
		spec := engine.PropSpec{Required: f.Required}
		if factory, ok := f.Default.(Factory); ok {
			if m.Params.Functional {
				spec.Default = factory()
			} else {
				spec.Factory = factory
			}
		} else {
			spec.Default = f.Default
		}
		out[name] = spec
	}
	return out
}

type adapterError string

func (e adapterError) Error() string { return string(e) }

const errNoContext = adapterError("lifecycle callback before instance context was attached")
