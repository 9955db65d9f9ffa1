package component

import (
	"regexp"
	"sync"
	"time"

	"github.com/go-drift/blocks/pkg/async"
	"github.com/go-drift/blocks/pkg/engine"
	"github.com/go-drift/blocks/pkg/errors"
	"github.com/go-drift/blocks/pkg/log"
)

// WatcherGroup is the default async resource group for watcher cleanup.
const WatcherGroup = "watchers"

// customWatcherRe matches custom-event watcher keys: an optional stage
// marker ("!" binds during beforeCreate, "?" defers to mounted, none binds
// at created), an optional target path, a separator, and the event name.
// Keys without a separator are reactive path watchers.
var customWatcherRe = regexp.MustCompile(`^([!?]?)([^!?:]*):(.*)$`)

var (
	scopeMu     sync.RWMutex
	globalScope = make(map[string]any)
)

// RegisterScope exposes an object to watcher target lookup by name, for
// watchers whose key addresses an object outside the component tree.
func RegisterScope(name string, target any) {
	scopeMu.Lock()
	if target == nil {
		delete(globalScope, name)
	} else {
		globalScope[name] = target
	}
	scopeMu.Unlock()
}

// Scope returns an object previously exposed with RegisterScope.
func Scope(name string) (any, bool) {
	return scopeTarget(name)
}

func scopeTarget(name string) (any, bool) {
	scopeMu.RLock()
	defer scopeMu.RUnlock()
	v, ok := globalScope[name]
	return v, ok
}

// BindWatchers attaches the watchers whose attach stage matches the
// context's current stage. It is a no-op outside beforeCreate, created, and
// mounted, the only three points at which new watchers may attach:
//
//   - "!" custom-event watchers bind during beforeCreate;
//   - unmarked custom-event watchers bind at created;
//   - "?" custom-event watchers and plain reactive path watchers bind at
//     mounted.
//
// A watcher already bound in an earlier stage is never attached twice.
// Custom-event targets resolve by path lookup against eventCtx, then the
// global scope, then fall back to ctx itself. Every subscription is tracked
// in the instance's async facility under the "watchers" group (or the
// watcher's own group) so destruction tears it down.
func BindWatchers(ctx *Context, eventCtx ...*Context) {
	switch ctx.Stage {
	case StageBeforeCreate, StageCreated, StageMounted:
	default:
		return
	}

	ectx := ctx
	if len(eventCtx) > 0 && eventCtx[0] != nil {
		ectx = eventCtx[0]
	}

	for key, watchers := range ctx.Meta.Watchers {
		parts := customWatcherRe.FindStringSubmatch(key)
		attachAt := StageMounted
		if parts != nil {
			switch parts[1] {
			case "!":
				attachAt = StageBeforeCreate
			case "?":
				attachAt = StageMounted
			default:
				attachAt = StageCreated
			}
		}
		if attachAt != ctx.Stage {
			continue
		}

		for _, w := range watchers {
			if !ctx.markBound(w) {
				continue
			}
			if parts != nil {
				bindCustomWatcher(ctx, ectx, key, parts[2], parts[3], w)
			} else {
				bindPathWatcher(ctx, key, w)
			}
		}
	}
}

func bindCustomWatcher(ctx, ectx *Context, key, path, event string, w *Watcher) {
	resolveHandler(ctx, key, w.Handler, func(h Handler) {
		target := resolveTarget(ctx, ectx, path)
		src, ok := target.(async.EventSource)
		if !ok {
			errors.Report(&errors.BlockError{
				Op:        "component.bindWatchers",
				Kind:      errors.KindConfig,
				Component: ctx.Name,
				Err:       &watchTargetError{key: key, path: path},
				Timestamp: time.Now(),
			})
			return
		}

		fire := prepareHandler(ctx, key, w, h)
		opts := &async.Options{Group: groupOf(w), Label: key}
		var err error
		if w.Single {
			_, err = ctx.Async.Once(src, event, fire, opts)
		} else {
			_, err = ctx.Async.On(src, event, fire, opts)
		}
		if err == nil {
			log.Emit("component:watcher", key, ctx.Name)
		}
		// ErrLocked means destruction won the race; the subscription is
		// simply not made.
	})
}

func bindPathWatcher(ctx *Context, key string, w *Watcher) {
	resolveHandler(ctx, key, w.Handler, func(h Handler) {
		fire := prepareHandler(ctx, key, w, h)
		off := ctx.Handle.Watch(key, engine.WatchOptions{Deep: w.Deep, Immediate: w.Immediate},
			func(value, old any) {
				fire(value, old)
			})
		if _, err := ctx.Async.Worker(off, &async.Options{Group: groupOf(w), Label: key}); err != nil {
			off()
			return
		}
		log.Emit("component:watcher", key, ctx.Name)
	})
}

// resolveHandler unwraps deferred handlers: a handler supplied as a
// completion of a handler is awaited before it becomes effective.
func resolveHandler(ctx *Context, key string, h Handler, bind func(Handler)) {
	dh, ok := h.(DeferredHandler)
	if !ok {
		bind(h)
		return
	}
	dh.C.Then(func() {
		inner, ok := dh.C.Value().(Handler)
		if !ok {
			errors.Report(&errors.BlockError{
				Op:        "component.bindWatchers",
				Kind:      errors.KindConfig,
				Component: ctx.Name,
				Err:       &watchTargetError{key: key},
				Timestamp: time.Now(),
			})
			return
		}
		resolveHandler(ctx, key, inner, bind)
	})
}

// resolveTarget finds the object a custom watcher subscribes on.
func resolveTarget(ctx, ectx *Context, path string) any {
	if path == "" {
		return ectx
	}
	if v, ok := ectx.Field(path); ok && v != nil {
		return v
	}
	if v, ok := scopeTarget(path); ok {
		return v
	}
	return ctx
}

// prepareHandler builds the firing function for a watcher: argument policy,
// handler-kind dispatch, user wrapper, and the callback error boundary.
func prepareHandler(ctx *Context, key string, w *Watcher, h Handler) func(args ...any) {
	invoke := invoker(ctx, key, w, h)

	fire := func(eventArgs ...any) {
		var args []any
		if w.ProvideArgs {
			args = append(args, eventArgs...)
		}
		args = append(args, w.Args...)
		invoke(args...)
	}
	if w.Wrapper != nil {
		fire = w.Wrapper(ctx, fire)
	}
	return fire
}

// invoker dispatches on the handler kind. Named methods are resolved at
// fire time and run through the deferred scheduling facility; a missing
// method is a configuration error and fails loudly. Author failures inside
// any handler are reported and swallowed.
func invoker(ctx *Context, key string, w *Watcher, h Handler) func(args ...any) {
	switch t := h.(type) {
	case MethodName:
		name := string(t)
		return func(args ...any) {
			opts := &async.Options{Group: groupOf(w), Label: key}
			ctx.Async.SetImmediate(func() {
				guardWatcher(ctx, key, func() {
					mt, ok := ctx.method(name)
					if !ok {
						panic(&errors.MissingMethodError{Component: ctx.Name, Method: name, Key: key})
					}
					mt.Call(ctx, args...)
				})
			}, opts)
		}
	case BoundFn:
		return func(args ...any) {
			guardWatcher(ctx, key, func() { t(args...) })
		}
	case FreeFn:
		return func(args ...any) {
			guardWatcher(ctx, key, func() { t(ctx, args...) })
		}
	default:
		return func(args ...any) {}
	}
}

// guardWatcher swallows and reports author failures, but lets configuration
// errors escape: a missing watched method must fail fast, not disappear
// into a log line.
func guardWatcher(ctx *Context, key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, config := r.(*errors.MissingMethodError); config {
				panic(r)
			}
			errors.ReportCallbackError(&errors.CallbackError{
				Component:  ctx.Name,
				Stage:      string(ctx.Stage),
				Callback:   key,
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			})
		}
	}()
	fn()
}

func groupOf(w *Watcher) string {
	if w.Group != "" {
		return w.Group
	}
	return WatcherGroup
}

type watchTargetError struct {
	key  string
	path string
}

func (e *watchTargetError) Error() string {
	if e.path != "" {
		return "watcher " + e.key + ": target " + e.path + " is not an event source"
	}
	return "watcher " + e.key + ": deferred handler did not resolve to a handler"
}
