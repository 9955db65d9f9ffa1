// Package errors provides structured error handling for the Blocks runtime.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// As re-exports the standard library matcher so callers need only this
// package for error handling.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Is re-exports the standard library matcher.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// New re-exports the standard library constructor.
func New(text string) error { return stderrors.New(text) }

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindConfig indicates a component definition error.
	KindConfig
	// KindHook indicates a failure inside a lifecycle hook body.
	KindHook
	// KindWatcher indicates a failure inside a watcher handler.
	KindWatcher
	// KindMethod indicates a failure inside an author-defined method.
	KindMethod
	// KindEngine indicates a host-engine boundary error.
	KindEngine
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindHook:
		return "hook"
	case KindWatcher:
		return "watcher"
	case KindMethod:
		return "method"
	case KindEngine:
		return "engine"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// BlockError represents a structured error in the Blocks runtime.
type BlockError struct {
	// Op is the operation that failed (e.g., "component.runHook").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Component is the component name, if applicable.
	Component string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *BlockError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s [%s] component=%s: %v", e.Op, e.Kind, e.Component, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "component.bindWatchers").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// CallbackError represents a failure in an author-supplied callback: a hook
// body, a lifecycle method, or a watcher handler. These are reported to the
// handler and swallowed so one failing component does not take down the tree.
type CallbackError struct {
	// Component is the component name.
	Component string
	// Stage is the lifecycle stage during which the callback ran.
	Stage string
	// Callback names the failing callback (hook name, method name, watch key).
	Callback string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *CallbackError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s.%s (%s): %v", e.Component, e.Callback, e.Stage, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s.%s (%s): %v", e.Component, e.Callback, e.Stage, e.Err)
	}
	return fmt.Sprintf("unknown error in %s.%s (%s)", e.Component, e.Callback, e.Stage)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports a field whose "after" set names a field that was
// never declared on the component.
type MissingFieldError struct {
	// Component is the component name.
	Component string
	// Field is the dependent field.
	Field string
	// Missing is the undeclared dependency.
	Missing string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: field %q waits for undeclared field %q", e.Component, e.Field, e.Missing)
}

// AtomOrderError reports an atomic field that declared a dependency on a
// non-atomic field. Atomic fields initialize before all non-atomic fields,
// so such a dependency can never be satisfied.
type AtomOrderError struct {
	// Component is the component name.
	Component string
	// Field is the atomic field.
	Field string
	// Dependency is the non-atomic field it waits for.
	Dependency string
}

func (e *AtomOrderError) Error() string {
	return fmt.Sprintf("%s: atomic field %q cannot wait for non-atomic field %q", e.Component, e.Field, e.Dependency)
}

// CycleError reports a dependency cycle among component fields: a sweep of
// the initializer made no progress while fields remained pending.
type CycleError struct {
	// Component is the component name.
	Component string
	// Pending lists the fields that could not be initialized.
	Pending []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: dependency cycle among fields [%s]", e.Component, strings.Join(e.Pending, ", "))
}

// MissingMethodError reports a watcher that names a method the component
// does not define.
type MissingMethodError struct {
	// Component is the component name.
	Component string
	// Method is the undefined method name.
	Method string
	// Key is the watched key whose handler referenced the method.
	Key string
}

func (e *MissingMethodError) Error() string {
	return fmt.Sprintf("%s: watcher %q references undefined method %q", e.Component, e.Key, e.Method)
}

// ErrorHandler receives errors reported by the Blocks runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *BlockError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleCallbackError is called when an author-supplied callback fails.
	HandleCallbackError(err *CallbackError)
}
