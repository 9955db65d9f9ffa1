package component

import (
	"time"

	"github.com/go-drift/blocks/pkg/async"
	"github.com/go-drift/blocks/pkg/errors"
	"github.com/go-drift/blocks/pkg/log"
)

// RunHook executes every hook registered for a stage, honoring intra-stage
// "after" edges: a hook with dependencies starts only once all named peers
// have completed, where an asynchronous peer completes when its returned
// completion settles. Hooks with no dependencies fire immediately, in
// registration order.
//
// The returned completion settles when every hook has completed. A stage
// with no hooks, or only synchronous hooks, completes synchronously; the
// signal supports the same Then/Catch/Finally contract either way. Hook
// failures (panics and deferred rejections) are reported to the error sink
// and swallowed: the stage still completes.
func RunHook(stage Stage, m *Meta, ctx *Context, args ...any) *async.Completion {
	hooks := m.HookList(stage)
	if len(hooks) == 0 {
		return async.Resolved()
	}

	done := make(map[string]*async.Completion, len(hooks))
	for _, h := range hooks {
		done[h.Name] = async.New()
	}

	run := func(h *Hook) {
		completion := done[h.Name]
		log.Emit("component:hook:"+string(stage), h.Name, ctx.Name)

		var deferred *async.Completion
		func() {
			defer func() {
				if r := recover(); r != nil {
					reportHookFailure(ctx, stage, h.Name, r, nil)
				}
			}()
			deferred = h.Fn(ctx, args...)
		}()

		if deferred == nil {
			completion.Resolve()
			return
		}
		deferred.Catch(func(err error) {
			reportHookFailure(ctx, stage, h.Name, nil, err)
		}).Finally(func() {
			completion.Resolve()
		})
	}

	for _, h := range hooks {
		hook := h
		if len(hook.After) == 0 {
			run(hook)
			continue
		}

		var deps []*async.Completion
		for name := range hook.After {
			if dep, ok := done[name]; ok {
				deps = append(deps, dep)
			}
		}
		if len(deps) == 0 {
			run(hook)
			continue
		}
		async.All(deps...).Then(func() {
			run(hook)
		})
	}

	all := make([]*async.Completion, 0, len(hooks))
	for _, h := range hooks {
		all = append(all, done[h.Name])
	}
	return async.All(all...)
}

// callMethodAsHook adapts a declared method into a hook body. A method
// returning a completion defers the hook's completion.
func callMethodAsHook(ctx *Context, name string, args []any) *async.Completion {
	mt, ok := ctx.Meta.MethodByName(name)
	if !ok {
		return nil
	}
	ret := mt.Call(ctx, args...)
	if c, ok := ret.(*async.Completion); ok {
		return c
	}
	return nil
}

func reportHookFailure(ctx *Context, stage Stage, hook string, recovered any, err error) {
	errors.ReportCallbackError(&errors.CallbackError{
		Component:  ctx.Name,
		Stage:      string(stage),
		Callback:   hook,
		Recovered:  recovered,
		Err:        err,
		StackTrace: errors.CaptureStack(),
		Timestamp:  time.Now(),
	})
}
