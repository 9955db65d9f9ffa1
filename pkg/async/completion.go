package async

import "sync"

// Completion is a deferred completion signal with a Then/Catch/Finally
// contract. Two constructors exist behind the same interface: Resolved (and
// Failed) produce already-settled signals without scheduling anything, while
// New produces a signal settled later by Resolve or Reject. Callers cannot
// distinguish the two except by timing.
type Completion struct {
	mu    sync.Mutex
	done  bool
	err   error
	value any
	subs  []func(error)
}

// New returns an unsettled completion.
func New() *Completion {
	return &Completion{}
}

// Resolved returns an already-resolved completion.
func Resolved() *Completion {
	return &Completion{done: true}
}

// ResolvedWith returns an already-resolved completion carrying a value.
func ResolvedWith(v any) *Completion {
	return &Completion{done: true, value: v}
}

// Failed returns an already-rejected completion.
func Failed(err error) *Completion {
	return &Completion{done: true, err: err}
}

// Resolve settles the completion successfully. Settling twice is a no-op.
func (c *Completion) Resolve() {
	c.settle(nil, nil)
}

// ResolveWith settles the completion successfully with a value.
func (c *Completion) ResolveWith(v any) {
	c.settle(nil, v)
}

// Reject settles the completion with an error.
func (c *Completion) Reject(err error) {
	c.settle(err, nil)
}

func (c *Completion) settle(err error, v any) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.err = err
	c.value = v
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, fn := range subs {
		fn(err)
	}
}

// Done reports whether the completion has settled.
func (c *Completion) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns the settling error, or nil if unsettled or resolved.
func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Value returns the resolved value, or nil.
func (c *Completion) Value() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// subscribe registers fn to run when the completion settles.
// If already settled, fn runs immediately.
func (c *Completion) subscribe(fn func(error)) {
	c.mu.Lock()
	if c.done {
		err := c.err
		c.mu.Unlock()
		fn(err)
		return
	}
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Then runs fn once the completion resolves successfully. The returned
// completion settles after fn returns, or mirrors the rejection.
func (c *Completion) Then(fn func()) *Completion {
	next := New()
	c.subscribe(func(err error) {
		if err != nil {
			next.Reject(err)
			return
		}
		if fn != nil {
			fn()
		}
		next.ResolveWith(c.Value())
	})
	return next
}

// Catch runs fn if the completion rejects. The rejection is considered
// handled: the returned completion resolves either way.
func (c *Completion) Catch(fn func(error)) *Completion {
	next := New()
	c.subscribe(func(err error) {
		if err != nil && fn != nil {
			fn(err)
		}
		next.ResolveWith(c.Value())
	})
	return next
}

// Finally runs fn when the completion settles, success or failure.
// The returned completion mirrors the original.
func (c *Completion) Finally(fn func()) *Completion {
	next := New()
	c.subscribe(func(err error) {
		if fn != nil {
			fn()
		}
		if err != nil {
			next.Reject(err)
			return
		}
		next.ResolveWith(c.Value())
	})
	return next
}

// All returns a completion that resolves once every given completion has
// settled. If all inputs are already settled, the result settles
// synchronously. The first rejection, if any, becomes the result's error;
// remaining completions are still awaited.
func All(cs ...*Completion) *Completion {
	if len(cs) == 0 {
		return Resolved()
	}

	all := New()
	remaining := len(cs)
	var firstErr error
	var mu sync.Mutex

	for _, c := range cs {
		c.subscribe(func(err error) {
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			remaining--
			settled := remaining == 0
			final := firstErr
			mu.Unlock()
			if settled {
				if final != nil {
					all.Reject(final)
				} else {
					all.Resolve()
				}
			}
		})
	}
	return all
}
