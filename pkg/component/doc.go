// Package component provides the class metadata registry and per-instance
// runtime of the Blocks framework.
//
// A component class is declared once, through a prototype implementing
// Block, and registered under a name. Registration compiles the prototype's
// Declare method into a Meta record: props, data fields, system fields,
// methods, computed values, accessors, lifecycle hooks, and watchers, all
// layered over the superclass's record so lookup reads through the
// inheritance chain.
//
// # Instances
//
// A rendering engine consumes a class through GetComponent, which compiles
// the Meta into an engine.Descriptor. Each instantiation gets a Context:
// its identity, its own writable metadata layer, and an Async facility
// tracking every subscription and pending task, so destroying the instance
// cancels everything it started.
//
// # Watchers
//
// Watcher keys follow the "[!?]path:event" grammar. A key with a separator
// subscribes to a custom event on the object named by path; the marker
// picks the lifecycle stage at which the subscription attaches ("!" for
// beforeCreate, none for created, "?" for mounted). A key without a
// separator watches a reactive path and always attaches at mounted.
//
// # Hooks
//
// Hooks run per lifecycle stage in registration order, except that a hook
// declared after named peers waits for their completions. A hook returning
// a non-nil async.Completion keeps its stage's completion signal open until
// it settles. Hook failures are reported to the error sink and swallowed;
// the stage always completes.
package component
