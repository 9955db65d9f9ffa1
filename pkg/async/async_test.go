package async

import (
	"errors"
	"testing"
)

// testEmitter is a minimal event source for exercising On/Once tracking.
type testEmitter struct {
	handlers map[string][]*testSub
}

type testSub struct {
	fn   func(args ...any)
	once bool
	dead bool
}

func newTestEmitter() *testEmitter {
	return &testEmitter{handlers: make(map[string][]*testSub)}
}

func (e *testEmitter) On(event string, handler func(args ...any)) func() {
	sub := &testSub{fn: handler}
	e.handlers[event] = append(e.handlers[event], sub)
	return func() { sub.dead = true }
}

func (e *testEmitter) Once(event string, handler func(args ...any)) func() {
	sub := &testSub{fn: handler, once: true}
	e.handlers[event] = append(e.handlers[event], sub)
	return func() { sub.dead = true }
}

func (e *testEmitter) Emit(event string, args ...any) {
	for _, sub := range e.handlers[event] {
		if sub.dead {
			continue
		}
		if sub.once {
			sub.dead = true
		}
		sub.fn(args...)
	}
}

func (e *testEmitter) live(event string) int {
	n := 0
	for _, sub := range e.handlers[event] {
		if !sub.dead {
			n++
		}
	}
	return n
}

func TestOnTracksSubscription(t *testing.T) {
	a := NewAsync()
	em := newTestEmitter()

	fired := 0
	_, err := a.On(em, "change", func(args ...any) { fired++ }, &Options{Group: "watchers"})
	if err != nil {
		t.Fatalf("On failed: %v", err)
	}

	em.Emit("change")
	if fired != 1 {
		t.Fatalf("handler fired %d times, want 1", fired)
	}
	if a.Pending("watchers") != 1 {
		t.Errorf("Pending(watchers) = %d, want 1", a.Pending("watchers"))
	}

	a.ClearAll()
	em.Emit("change")
	if fired != 1 {
		t.Error("handler fired after ClearAll")
	}
}

func TestOnAppendsExtraArgs(t *testing.T) {
	a := NewAsync()
	em := newTestEmitter()

	var got []any
	_, err := a.On(em, "change", func(args ...any) { got = args }, nil, "extra")
	if err != nil {
		t.Fatalf("On failed: %v", err)
	}

	em.Emit("change", 1)
	if len(got) != 2 || got[0] != 1 || got[1] != "extra" {
		t.Errorf("handler args = %v, want [1 extra]", got)
	}
}

func TestOnceFiresOnce(t *testing.T) {
	a := NewAsync()
	em := newTestEmitter()

	fired := 0
	if _, err := a.Once(em, "ready", func(args ...any) { fired++ }, nil); err != nil {
		t.Fatalf("Once failed: %v", err)
	}

	em.Emit("ready")
	em.Emit("ready")
	if fired != 1 {
		t.Errorf("handler fired %d times, want 1", fired)
	}
}

func TestUnsubscribeStopsTracking(t *testing.T) {
	a := NewAsync()
	em := newTestEmitter()

	off, err := a.On(em, "change", func(args ...any) {}, nil)
	if err != nil {
		t.Fatalf("On failed: %v", err)
	}
	off()

	if em.live("change") != 0 {
		t.Error("unsubscribe should remove the event handler")
	}
	if a.Pending(DefaultGroup) != 0 {
		t.Errorf("Pending = %d, want 0 after unsubscribe", a.Pending(DefaultGroup))
	}
}

func TestWorkerRunsOnClearAll(t *testing.T) {
	a := NewAsync()

	disposed := false
	if _, err := a.Worker(func() { disposed = true }, &Options{Group: "watchers"}); err != nil {
		t.Fatalf("Worker failed: %v", err)
	}

	a.ClearAll()
	if !disposed {
		t.Error("worker disposer should run on ClearAll")
	}
}

func TestWorkerUnregisterSkipsDisposer(t *testing.T) {
	a := NewAsync()

	disposed := false
	unregister, err := a.Worker(func() { disposed = true }, nil)
	if err != nil {
		t.Fatalf("Worker failed: %v", err)
	}
	unregister()

	a.ClearAll()
	if disposed {
		t.Error("unregistered worker disposer should not run on ClearAll")
	}
}

func TestClearGroupLeavesOtherGroups(t *testing.T) {
	a := NewAsync()

	var cleared []string
	a.Worker(func() { cleared = append(cleared, "watchers") }, &Options{Group: "watchers"})
	a.Worker(func() { cleared = append(cleared, "timers") }, &Options{Group: "timers"})

	a.ClearGroup("watchers")
	if len(cleared) != 1 || cleared[0] != "watchers" {
		t.Errorf("cleared = %v, want [watchers]", cleared)
	}
	if a.Locked() {
		t.Error("ClearGroup should not lock the facility")
	}
	if a.Pending("timers") != 1 {
		t.Error("other groups should survive ClearGroup")
	}
}

func TestClearAllLocksFacility(t *testing.T) {
	a := NewAsync()
	a.ClearAll()

	if !a.Locked() {
		t.Fatal("facility should be locked after ClearAll")
	}
	if _, err := a.Worker(func() {}, nil); !errors.Is(err, ErrLocked) {
		t.Errorf("Worker after ClearAll = %v, want ErrLocked", err)
	}
	if _, err := a.SetImmediate(func() {}, nil); !errors.Is(err, ErrLocked) {
		t.Errorf("SetImmediate after ClearAll = %v, want ErrLocked", err)
	}
	if _, err := a.On(newTestEmitter(), "x", func(args ...any) {}, nil); !errors.Is(err, ErrLocked) {
		t.Errorf("On after ClearAll = %v, want ErrLocked", err)
	}
}

func TestClearAllCancelsInReverseOrder(t *testing.T) {
	a := NewAsync()

	var order []int
	a.Worker(func() { order = append(order, 1) }, nil)
	a.Worker(func() { order = append(order, 2) }, nil)
	a.ClearAll()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("disposal order = %v, want [2 1]", order)
	}
}

func TestSetImmediateRunsInline(t *testing.T) {
	a := NewAsync()

	ran := false
	if _, err := a.SetImmediate(func() { ran = true }, nil); err != nil {
		t.Fatalf("SetImmediate failed: %v", err)
	}
	if !ran {
		t.Error("SetImmediate should run inline without a registered scheduler")
	}
	if a.Pending(DefaultGroup) != 0 {
		t.Error("completed task should no longer be tracked")
	}
}

func TestSetImmediateCancelledByClearAll(t *testing.T) {
	var queue []func()
	RegisterScheduler(func(fn func()) { queue = append(queue, fn) })
	defer RegisterScheduler(nil)

	a := NewAsync()
	ran := false
	if _, err := a.SetImmediate(func() { ran = true }, nil); err != nil {
		t.Fatalf("SetImmediate failed: %v", err)
	}

	a.ClearAll()
	for _, fn := range queue {
		fn()
	}
	if ran {
		t.Error("scheduled task should not run after ClearAll")
	}
}

func TestSetImmediateCancel(t *testing.T) {
	var queue []func()
	RegisterScheduler(func(fn func()) { queue = append(queue, fn) })
	defer RegisterScheduler(nil)

	a := NewAsync()
	ran := false
	cancel, err := a.SetImmediate(func() { ran = true }, nil)
	if err != nil {
		t.Fatalf("SetImmediate failed: %v", err)
	}
	cancel()

	for _, fn := range queue {
		fn()
	}
	if ran {
		t.Error("cancelled task should not run")
	}
}

func TestPromiseMirrorsCompletion(t *testing.T) {
	a := NewAsync()

	c := New()
	tracked, err := a.Promise(c, nil)
	if err != nil {
		t.Fatalf("Promise failed: %v", err)
	}

	c.ResolveWith("done")
	if !tracked.Done() {
		t.Fatal("tracked completion should settle with the original")
	}
	if tracked.Value() != "done" {
		t.Errorf("Value() = %v, want done", tracked.Value())
	}
}

func TestPromiseCancelledByClearAll(t *testing.T) {
	a := NewAsync()

	c := New()
	tracked, err := a.Promise(c, nil)
	if err != nil {
		t.Fatalf("Promise failed: %v", err)
	}

	a.ClearAll()
	c.Resolve()
	if tracked.Done() {
		t.Error("tracked completion should never settle after ClearAll")
	}
}
