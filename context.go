// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// ContextKind distinguishes how an execution context is scheduled.
type ContextKind uint8

const (
	// Preemptive contexts are OS-scheduled and may run in parallel.
	Preemptive ContextKind = iota
	// Cooperative contexts run one at a time inside a host and switch
	// only at explicit transfer points.
	Cooperative
)

func (k ContextKind) String() string {
	if k == Cooperative {
		return "cooperative"
	}
	return "preemptive"
}

// Context lifecycle values.
const (
	lifeLive uint32 = iota
	lifeTerminated
)

// Context is a handle for one unit of sequential execution.
//
// The inbox, latch, flagged, and life fields are the synchronization
// boundary shared with other actors. Everything else is owned by the
// context's own execution and is never touched from outside.
type Context struct {
	serial  Serial
	kind    ContextKind
	life    atomix.Uint32
	latch   atomix.Uint32
	flagged atomix.Uint32
	inbox   lfq.SPSC[*Interrupt]

	regions   []regionFrame
	pending   []*Interrupt
	held      map[*Mutex]struct{}
	blocking  int
	unwinding bool
	err       error
}

func newContext(kind ContextKind) *Context {
	c := &Context{
		serial: nextSerial(),
		kind:   kind,
		held:   make(map[*Mutex]struct{}),
	}
	c.inbox.Init(inboxCapacity)
	return c
}

// Spawn starts fn on a new preemptive context. A delivered interrupt that
// unwinds fn becomes the context's error, observable via [Context.Join].
func Spawn(fn func(*Context) error) *Context {
	c := newContext(Preemptive)
	go c.run(fn)
	return c
}

// Adopt binds a fresh preemptive context handle to the calling execution.
// The caller is responsible for threading the handle through its calls and
// for marking the end of its life with [Context.Terminate].
func Adopt() *Context {
	return newContext(Preemptive)
}

func (c *Context) run(fn func(*Context) error) {
	defer func() {
		if r := recover(); r != nil {
			iv, ok := r.(*Interrupt)
			if !ok || !c.unwinding {
				c.life.Store(lifeTerminated)
				panic(r)
			}
			c.unwinding = false
			c.err = iv
		}
		c.life.Store(lifeTerminated)
	}()
	c.err = fn(c)
}

// Serial returns the context's stable identity.
func (c *Context) Serial() Serial { return c.serial }

// Kind returns whether the context is preemptive or cooperative.
func (c *Context) Kind() ContextKind { return c.kind }

// Terminated reports whether the context has finished.
func (c *Context) Terminated() bool {
	return c.life.Load() == lifeTerminated
}

// Terminate marks an adopted context as finished with the given result.
// Spawned contexts terminate on their own when fn returns.
func (c *Context) Terminate(err error) {
	c.err = err
	c.life.Store(lifeTerminated)
}

// Join waits for the context to terminate and returns its result.
// Waits with adaptive backoff; no channels are involved.
func (c *Context) Join() error {
	var bo iox.Backoff
	for c.life.Load() != lifeTerminated {
		bo.Wait()
	}
	return c.err
}

// Unwinding reports whether the context is currently unwinding a delivered
// interrupt, i.e. whether mutating mutex operations would be refused.
func (c *Context) Unwinding() bool { return c.unwinding }

// Holds reports whether the context currently owns m. Context-owned.
func (c *Context) Holds(m *Mutex) bool {
	_, ok := c.held[m]
	return ok
}

// PendingInterrupt reports whether an interrupt of the given kind (or any
// of its subkinds) is queued against the context, regardless of masking.
// A nil kind checks for any pending interrupt. Context-owned.
func (c *Context) PendingInterrupt(kind *Kind) bool {
	c.drain()
	if kind == nil {
		kind = Any
	}
	for _, iv := range c.pending {
		if iv.kind.Is(kind) {
			return true
		}
	}
	return false
}
