package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-drift/blocks/pkg/log"
)

// Block is implemented by a component prototype. Declare configures the
// class's metadata; any further exported methods on the prototype become
// component methods, callable and watchable by their lower-camel names.
type Block interface {
	Declare(d *Declaration)
}

// Base is the zero-behavior prototype every component embeds. Methods
// promoted from Base are excluded from reflective method discovery, so
// embedding it never pollutes a component's method table.
type Base struct{}

// Declare registers nothing. Components override it.
func (*Base) Declare(d *Declaration) {}

type registration struct {
	meta  *Meta
	proto Block
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*registration)
)

// Register builds the metadata record for a component class and stores it
// under name. parent names a previously registered superclass, or is empty
// for a root component. The prototype's Declare method runs once, against a
// child of the parent's metadata; declaration errors are aggregated and
// returned together.
func Register(name, parent string, proto Block) (*Meta, error) {
	var parentMeta *Meta
	if parent != "" {
		reg, ok := lookupRegistration(parent)
		if !ok {
			return nil, fmt.Errorf("component: register %s: unknown parent %s", name, parent)
		}
		parentMeta = reg.meta
	}

	m := NewMeta(parentMeta)
	inherited := m.ComponentName
	d := newDeclaration(m)
	proto.Declare(d)
	// A name set inside Declare wins; otherwise the registry key becomes
	// the component name. The key stays the lookup alias either way.
	if m.ComponentName == inherited {
		m.ComponentName = name
	}
	if err := d.build(); err != nil {
		return nil, fmt.Errorf("component: register %s: %w", name, err)
	}
	AddMethods(proto, m)

	registryMu.Lock()
	registry[name] = &registration{meta: m, proto: proto}
	registryMu.Unlock()

	log.Emit("component:register", name, parent)
	return m, nil
}

// MustRegister is Register panicking on error, for package-level component
// definitions.
func MustRegister(name, parent string, proto Block) *Meta {
	m, err := Register(name, parent, proto)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup returns the registered metadata and prototype of a component class.
func Lookup(name string) (*Meta, Block, bool) {
	reg, ok := lookupRegistration(name)
	if !ok {
		return nil, nil, false
	}
	return reg.meta, reg.proto, true
}

func lookupRegistration(name string) (*registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	return reg, ok
}

// Registered returns the names of every registered component class, sorted.
func Registered() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}

// Unregister removes a component class. Mostly useful to tests.
func Unregister(name string) {
	registryMu.Lock()
	delete(registry, name)
	registryMu.Unlock()
}
