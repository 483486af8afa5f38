// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

import "code.hybscloud.com/iox"

// inboxCapacity is the bounded capacity of a context's pending-interrupt
// inbox. Requests back off while the inbox is momentarily full; 64 keeps
// that window negligible for realistic interrupt rates.
const inboxCapacity = 64

// RequestInterrupt queues an interrupt of the given kind and payload
// against target. Callable from any actor, including timer contexts;
// cancellation and timeout are both expressed as interrupt requests.
//
// The request only queues: delivery happens at the target's next safe
// point whose effective policy makes the interrupt eligible. Requests
// against a terminated context return [ErrTargetTerminated].
//
// Enqueueing is serialized through the target's producer latch so the
// single-producer invariant of the lock-free inbox holds; a full inbox is
// waited out with adaptive backoff.
func RequestInterrupt(target *Context, kind *Kind, payload any) error {
	if kind == nil {
		kind = Any
	}
	iv := &Interrupt{kind: kind, payload: payload}
	var bo iox.Backoff
	for {
		if target.life.Load() == lifeTerminated {
			return ErrTargetTerminated
		}
		if target.latch.CompareAndSwap(0, 1) {
			err := target.inbox.Enqueue(&iv)
			if err == nil {
				target.flagged.Store(1)
			}
			target.latch.Store(0)
			if err == nil {
				return nil
			}
		}
		bo.Wait()
	}
}

// Check is an explicit safe point: any eligible pending interrupt is
// delivered here by unwinding the calling context. Context-owned.
func (c *Context) Check() {
	c.poll(false)
}

// NotifyBlockingEnter marks the start of a blocking operation on c and is a
// safe point at which OnBlocking interrupts become eligible. Blocking
// wrappers call it before suspending. Nestable. Context-owned.
func NotifyBlockingEnter(c *Context) {
	c.blocking++
	c.poll(true)
}

// NotifyBlockingExit marks the end of a blocking operation on c. It is an
// ordinary (non-blocking) safe point. Context-owned.
func NotifyBlockingExit(c *Context) {
	c.blocking--
	c.poll(false)
}

// Blocking runs body as a blocking operation on c, keeping the boundary
// balanced on all exit paths. While inside, every safe point treats the
// context as blocked, so OnBlocking interrupts are eligible throughout.
func Blocking(c *Context, body func() error) error {
	// The exit is registered first so an unwind delivered at the enter
	// boundary still restores the blocking depth.
	defer NotifyBlockingExit(c)
	NotifyBlockingEnter(c)
	return body()
}

// drain moves everything queued in the inbox onto the context-owned
// pending list, preserving FIFO arrival order. Only the context's own
// execution calls drain, so the single-consumer invariant holds.
func (c *Context) drain() {
	if c.flagged.Load() == 0 {
		return
	}
	c.flagged.Store(0)
	for {
		iv, err := c.inbox.Dequeue()
		if err != nil {
			return
		}
		c.pending = append(c.pending, iv)
	}
}

// take removes and returns the oldest pending interrupt eligible under the
// current mask stack, or nil. Interrupts observed under an OnBlocking
// region are armed: from then on they fire only at a blocking boundary or
// under an explicitly pushed Immediate region, not under the default
// policy of an empty stack.
func (c *Context) take(atBlocking bool) *Interrupt {
	if c.unwinding {
		return nil
	}
	c.drain()
	if len(c.pending) == 0 {
		return nil
	}
	atBlocking = atBlocking || c.blocking > 0
	for i, iv := range c.pending {
		pol, explicit := c.effectivePolicy(iv.kind)
		switch pol {
		case Never:
			continue
		case OnBlocking:
			iv.armed = true
			if !atBlocking {
				continue
			}
		case Immediate:
			if iv.armed && !atBlocking && !explicit {
				continue
			}
		}
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		return iv
	}
	return nil
}

// poll delivers the oldest eligible pending interrupt, if any.
func (c *Context) poll(atBlocking bool) {
	if iv := c.take(atBlocking); iv != nil {
		c.deliver(iv)
	}
}

// deliver unwinds the context with iv. The unwinding window stays open
// until [Recover], a context runner, or a coroutine trampoline closes it;
// inside the window further polling is suppressed and mutating mutex
// operations fail with [ErrUnsafeDuringInterrupt].
func (c *Context) deliver(iv *Interrupt) {
	c.unwinding = true
	panic(iv)
}
