package component

import (
	"sort"

	"github.com/go-drift/blocks/pkg/errors"
)

// InitDataObject populates data from the given field declarations, honoring
// declared "after" dependencies and atomic scheduling. Atomic fields (and
// fields that are atomic in effect: no init, no dependencies, value coming
// from a plain default or the prototype instance) initialize before any
// non-atomic field. Within those constraints, order is deterministic but
// otherwise unspecified.
//
// Configuration problems fail fast before any field initializes: a
// dependency on an undeclared field, an atomic field depending on a
// non-atomic one, or a dependency cycle (detected as a sweep that makes no
// progress while fields remain pending).
func InitDataObject(fields map[string]*Field, ctx *Context, data map[string]any) (map[string]any, error) {
	if data == nil {
		data = make(map[string]any)
	}

	component := ""
	if ctx != nil {
		component = ctx.Name
	}

	for name, f := range fields {
		for dep := range f.After {
			target, ok := fields[dep]
			if !ok {
				return nil, &errors.MissingFieldError{Component: component, Field: name, Missing: dep}
			}
			if f.Atom && !target.Atom {
				return nil, &errors.AtomOrderError{Component: component, Field: name, Dependency: dep}
			}
		}
	}

	var atoms, rest []string
	for name, f := range fields {
		if isAtomic(ctx, f) {
			atoms = append(atoms, name)
		} else {
			rest = append(rest, name)
		}
	}
	sort.Strings(atoms)
	sort.Strings(rest)

	ready := func(f *Field) bool {
		for dep := range f.After {
			if _, ok := data[dep]; !ok {
				return false
			}
		}
		return true
	}

	for len(atoms)+len(rest) > 0 {
		progress := false

		pending := atoms[:0]
		for _, name := range atoms {
			f := fields[name]
			if !ready(f) {
				pending = append(pending, name)
				continue
			}
			initField(ctx, f, data)
			progress = true
		}
		atoms = pending

		// Non-atomic fields wait until no atomic field is pending.
		if len(atoms) == 0 {
			pending = rest[:0]
			for _, name := range rest {
				f := fields[name]
				if !ready(f) {
					pending = append(pending, name)
					continue
				}
				initField(ctx, f, data)
				progress = true
			}
			rest = pending
		}

		if !progress {
			stuck := append(append([]string(nil), atoms...), rest...)
			sort.Strings(stuck)
			return nil, &errors.CycleError{Component: component, Pending: stuck}
		}
	}

	return data, nil
}

// isAtomic reports whether a field is scheduled in the atomic phase.
func isAtomic(ctx *Context, f *Field) bool {
	if f.Atom {
		return true
	}
	if f.Init != nil || len(f.After) > 0 {
		return false
	}
	if f.Default != nil {
		return true
	}
	if ctx != nil {
		if _, ok := ctx.instanceValue(f.Name); ok {
			return true
		}
	}
	return false
}

// initField computes one field's value. An init callback that declines
// (ok=false) falls back to the static default, cloned deeply if the field
// is absent from data; a value already present in data wins over defaults.
func initField(ctx *Context, f *Field, data map[string]any) {
	if f.Init != nil {
		if v, ok := f.Init(ctx, data); ok {
			data[f.Name] = v
			return
		}
	}
	if _, exists := data[f.Name]; exists {
		return
	}
	if f.Default != nil {
		if factory, ok := f.Default.(Factory); ok {
			data[f.Name] = factory()
		} else {
			data[f.Name] = deepClone(f.Default)
		}
		return
	}
	if ctx != nil {
		if v, ok := ctx.instanceValue(f.Name); ok {
			data[f.Name] = deepClone(v)
			return
		}
	}
	data[f.Name] = nil
}
