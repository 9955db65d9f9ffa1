package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/blocks/cmd/metagen/internal/config"
	"github.com/go-drift/blocks/pkg/component"
)

var describeOut string

func init() {
	describeCmd.Flags().StringVarP(&describeOut, "out", "o", "",
		"directory to write per-component YAML files to instead of stdout")
}

var describeCmd = &cobra.Command{
	Use:   "describe [component...]",
	Short: "Dump component metadata as YAML",
	Long: `Describe emits the compiled metadata of the named components, or of
every registered component when no names are given. With --out (or a
docs.output entry in blocks.yaml) each component is written to its own
file; otherwise everything goes to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.LoadOptional(cwd)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			names = cfg.Docs.Include
		}
		if len(names) == 0 {
			names = component.Registered()
		}

		outDir := describeOut
		if outDir == "" && cfg.Docs.Output != "" {
			outDir = filepath.Join(cwd, cfg.Docs.Output)
		}

		for _, name := range names {
			m, _, ok := component.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown component %q", name)
			}
			data, err := yaml.Marshal(describeMeta(m))
			if err != nil {
				return err
			}
			if outDir == "" {
				fmt.Printf("---\n%s", data)
				continue
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(outDir, name+".yaml")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
		return nil
	},
}

// componentDoc is the YAML shape of one component's metadata.
type componentDoc struct {
	Name         string              `yaml:"name"`
	Extends      string              `yaml:"extends,omitempty"`
	Functional   bool                `yaml:"functional,omitempty"`
	Model        *modelDoc           `yaml:"model,omitempty"`
	Provide      []string            `yaml:"provide,omitempty"`
	Inject       []string            `yaml:"inject,omitempty"`
	Props        map[string]fieldDoc `yaml:"props,omitempty"`
	Fields       map[string]fieldDoc `yaml:"fields,omitempty"`
	SystemFields map[string]fieldDoc `yaml:"systemFields,omitempty"`
	Computed     []string            `yaml:"computed,omitempty"`
	Accessors    []string            `yaml:"accessors,omitempty"`
	Methods      []string            `yaml:"methods,omitempty"`
	Hooks        map[string][]string `yaml:"hooks,omitempty"`
	Watchers     []watcherDoc        `yaml:"watchers,omitempty"`
	Mods         map[string]string   `yaml:"mods,omitempty"`
}

type modelDoc struct {
	Prop  string `yaml:"prop"`
	Event string `yaml:"event"`
}

type fieldDoc struct {
	Required bool     `yaml:"required,omitempty"`
	Default  any      `yaml:"default,omitempty"`
	Factory  bool     `yaml:"factory,omitempty"`
	Init     bool     `yaml:"init,omitempty"`
	Atom     bool     `yaml:"atom,omitempty"`
	After    []string `yaml:"after,omitempty"`
}

type watcherDoc struct {
	Key       string `yaml:"key"`
	Handler   string `yaml:"handler"`
	Group     string `yaml:"group,omitempty"`
	Single    bool   `yaml:"single,omitempty"`
	Deep      bool   `yaml:"deep,omitempty"`
	Immediate bool   `yaml:"immediate,omitempty"`
}

func describeMeta(m *component.Meta) componentDoc {
	doc := componentDoc{
		Name:         m.ComponentName,
		Functional:   m.Params.Functional,
		Inject:       m.Params.Inject,
		Props:        fieldDocs(m.AllProps()),
		Fields:       fieldDocs(m.AllFields()),
		SystemFields: fieldDocs(m.AllSystemFields()),
		Computed:     sortedKeys(m.AllComputed()),
		Accessors:    sortedKeys(m.AllAccessors()),
		Methods:      sortedKeys(m.AllMethods()),
		Mods:         m.AllMods(),
	}
	if p := m.Parent(); p != nil {
		doc.Extends = p.ComponentName
	}
	if ms := m.Params.Model; ms != nil {
		doc.Model = &modelDoc{Prop: ms.Prop, Event: ms.Event}
	}
	doc.Provide = sortedKeys(m.Params.Provide)

	hooks := make(map[string][]string)
	stages := append([]component.Stage{component.StageBeforeDataCreate}, component.Stages...)
	stages = append(stages, component.StageErrorCaptured)
	for _, stage := range stages {
		for _, h := range m.HookList(stage) {
			hooks[string(stage)] = append(hooks[string(stage)], h.Name)
		}
	}
	if len(hooks) > 0 {
		doc.Hooks = hooks
	}

	var keys []string
	watchers := make(map[string][]*component.Watcher)
	for key, list := range m.Watchers {
		keys = append(keys, key)
		watchers[key] = list
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, w := range watchers[key] {
			doc.Watchers = append(doc.Watchers, watcherDoc{
				Key:       key,
				Handler:   handlerName(w.Handler),
				Group:     w.Group,
				Single:    w.Single,
				Deep:      w.Deep,
				Immediate: w.Immediate,
			})
		}
	}
	return doc
}

func fieldDocs(fields map[string]*component.Field) map[string]fieldDoc {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]fieldDoc, len(fields))
	for name, f := range fields {
		d := fieldDoc{
			Required: f.Required,
			Init:     f.Init != nil,
			Atom:     f.Atom,
		}
		if _, ok := f.Default.(component.Factory); ok {
			d.Factory = true
		} else if f.Default != nil {
			d.Default = f.Default
		}
		for dep := range f.After {
			d.After = append(d.After, dep)
		}
		sort.Strings(d.After)
		out[name] = d
	}
	return out
}

func handlerName(h component.Handler) string {
	switch t := h.(type) {
	case component.MethodName:
		return "method " + string(t)
	case component.BoundFn:
		return "func"
	case component.FreeFn:
		return "func"
	case component.DeferredHandler:
		return "deferred"
	default:
		return "unknown"
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
