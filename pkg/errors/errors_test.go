package errors

import (
	"strings"
	"testing"
	"time"
)

func TestBlockErrorString(t *testing.T) {
	err := &BlockError{
		Op:   "test.operation",
		Kind: KindConfig,
		Err:  &MissingFieldError{Component: "bExample", Field: "b", Missing: "a"},
	}
	got := err.Error()
	if got == "" {
		t.Error("expected non-empty error string")
	}
}

func TestBlockErrorWithComponent(t *testing.T) {
	err := &BlockError{
		Op:        "component.runHook",
		Kind:      KindHook,
		Component: "bCounter",
		Err:       &MissingMethodError{Component: "bCounter", Method: "onTick", Key: "value"},
	}
	got := err.Error()
	if got == "" {
		t.Error("expected non-empty error string")
	}
	// Should contain component info
	want := "component=bCounter"
	if !contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindConfig, "config"},
		{KindHook, "hook"},
		{KindWatcher, "watcher"},
		{KindMethod, "method"},
		{KindEngine, "engine"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic: test panic"
	if got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestPanicErrorStringWithOp(t *testing.T) {
	err := &PanicError{
		Op:        "component.bindWatchers",
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic in component.bindWatchers: test panic"
	if got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestConfigErrorStrings(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			&MissingFieldError{Component: "bExample", Field: "b", Missing: "a"},
			`bExample: field "b" waits for undeclared field "a"`,
		},
		{
			&AtomOrderError{Component: "bExample", Field: "a", Dependency: "b"},
			`bExample: atomic field "a" cannot wait for non-atomic field "b"`,
		},
		{
			&CycleError{Component: "bExample", Pending: []string{"a", "b"}},
			"bExample: dependency cycle among fields [a, b]",
		},
		{
			&MissingMethodError{Component: "bExample", Method: "onChange", Key: "value"},
			`bExample: watcher "value" references undefined method "onChange"`,
		},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%T.Error() = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	var capturedErr *BlockError
	handler := &testHandler{
		onError: func(err *BlockError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(&BlockError{
		Op:   "test.op",
		Kind: KindEngine,
		Err:  &MissingMethodError{Component: "bExample", Method: "m", Key: "k"},
	})

	if capturedErr == nil {
		t.Error("expected error to be captured")
	}
	if capturedErr.Op != "test.op" {
		t.Errorf("Op = %q, want %q", capturedErr.Op, "test.op")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportPanic(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportPanic(&PanicError{
		Value:     "test panic value",
		Timestamp: time.Now(),
	})

	if capturedPanic == nil {
		t.Error("expected panic to be captured")
	}
	if capturedPanic.Value != "test panic value" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "test panic value")
	}
}

func TestRecover(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if capturedPanic == nil {
		t.Error("expected panic to be recovered and captured")
	}
	if capturedPanic.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "intentional test panic")
	}
	if capturedPanic.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", capturedPanic.Op, "test.recover")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	// Stack should contain some runtime info (either test function or testing infrastructure)
	if !contains(stack, "testing") && !contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if DefaultHandler == nil {
		t.Error("SetHandler(nil) should set default LogHandler, not nil")
	}
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestCallbackErrorString(t *testing.T) {
	// Panic value
	err := &CallbackError{
		Component: "bCounter",
		Stage:     "mounted",
		Callback:  "onMounted",
		Recovered: "nil pointer dereference",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic in bCounter.onMounted (mounted): nil pointer dereference"
	if got != want {
		t.Errorf("CallbackError.Error() = %q, want %q", got, want)
	}

	// Regular error
	err2 := &CallbackError{
		Component: "bCounter",
		Stage:     "created",
		Callback:  "loadData",
		Err:       &MissingMethodError{Component: "bCounter", Method: "m", Key: "k"},
		Timestamp: time.Now(),
	}
	got2 := err2.Error()
	if !contains(got2, "error in bCounter.loadData (created)") {
		t.Errorf("CallbackError.Error() = %q, should contain 'error in'", got2)
	}

	// Unknown error
	err3 := &CallbackError{
		Component: "bCounter",
		Stage:     "created",
		Callback:  "loadData",
	}
	got3 := err3.Error()
	want3 := "unknown error in bCounter.loadData (created)"
	if got3 != want3 {
		t.Errorf("CallbackError.Error() = %q, want %q", got3, want3)
	}
}

func TestReportCallbackError(t *testing.T) {
	var capturedErr *CallbackError
	handler := &testHandler{
		onCallbackError: func(err *CallbackError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportCallbackError(&CallbackError{
		Component: "bExample",
		Stage:     "mounted",
		Callback:  "onMounted",
		Recovered: "test panic",
	})

	if capturedErr == nil {
		t.Error("expected callback error to be captured")
	}
	if capturedErr.Component != "bExample" {
		t.Errorf("Component = %q, want %q", capturedErr.Component, "bExample")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

type testHandler struct {
	onError         func(*BlockError)
	onPanic         func(*PanicError)
	onCallbackError func(*CallbackError)
}

func (h *testHandler) HandleError(err *BlockError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}

func (h *testHandler) HandleCallbackError(err *CallbackError) {
	if h.onCallbackError != nil {
		h.onCallbackError(err)
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
