package component

import (
	"github.com/go-drift/blocks/pkg/engine"
)

// functionalDescriptor finishes compilation of a functional component.
// Functional instances are cheap and stateless between renders: they run
// beforeCreate and created synchronously and never attach watchers. The
// remaining lifecycle callbacks stay nil and the engine skips them, so no
// destroy pass will ever tear the instance down; the async facility is
// cleared and locked as soon as created completes, and tracked work must
// not outlive the setup stages.
func functionalDescriptor(m *Meta, proto Block, d *engine.Descriptor) *engine.Descriptor {
	d.Data = func(h engine.Handle) map[string]any {
		ctx := contextOf(h)
		if ctx == nil {
			return nil
		}
		data, err := InitDataObject(ctx.Meta.AllFields(), ctx, map[string]any{})
		if err != nil {
			panic(err)
		}
		return data
	}

	d.BeforeCreate = func(h engine.Handle) {
		ctx := newInstanceContext(h, m, proto)
		h.SetContext(ctx)
		initSystemFields(ctx)
		ctx.transition(StageBeforeCreate)
		ctx.Hook = StageBeforeCreate
		RunHook(StageBeforeCreate, ctx.Meta, ctx)
		callAuthor(ctx, StageBeforeCreate)
	}

	d.Created = func(h engine.Handle) {
		ctx := contextOf(h)
		if ctx == nil {
			return
		}
		ctx.transition(StageCreated)
		ctx.Hook = StageCreated
		RunHook(StageCreated, ctx.Meta, ctx)
		callAuthor(ctx, StageCreated)
		ctx.Async.ClearAll()
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
