// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

import (
	"code.hybscloud.com/kont"
)

// CoroState is the lifecycle state of a symmetric-transfer coroutine.
type CoroState uint8

const (
	CoroCreated CoroState = iota
	CoroRunning
	CoroSuspended
	CoroTerminated
)

func (s CoroState) String() string {
	switch s {
	case CoroCreated:
		return "created"
	case CoroRunning:
		return "running"
	case CoroSuspended:
		return "suspended"
	default:
		return "terminated"
	}
}

// Transfer is the effect operation for a symmetric hand-off: it suspends
// the performing coroutine and moves control (and Value) to Target.
// Perform resumes with the value carried by the transfer that eventually
// hands control back.
type Transfer struct {
	kont.Phantom[any]
	Target *Coro
	Value  any
}

// TransferThen hands control and v to target, then continues with next
// once control comes back. Fuses Perform(Transfer{...}) + Then.
func TransferThen[B any](target *Coro, v any, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Transfer{Target: target, Value: v}), next)
}

// TransferBind hands control and v to target, then passes the value carried
// by the returning transfer to f. Fuses Perform(Transfer{...}) + Bind.
func TransferBind[B any](target *Coro, v any, f func(any) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Transfer{Target: target, Value: v}), f)
}

// Done completes a coroutine body with v. Control returns to the group's
// root when the body completes.
func Done(v any) kont.Eff[any] {
	return kont.Pure(v)
}

// Coro is a cooperative execution context with symmetric-transfer
// discipline: once suspended by transferring to a partner, it can be
// reactivated only by a transfer from that partner.
type Coro struct {
	ctx      *Context
	body     func(*Coro) kont.Eff[any]
	susp     *kont.Suspension[any]
	state    CoroState
	lastFrom *Coro
	resumer  *Coro
	entry    any
	result   any
	started  bool
}

// Context returns the coroutine's execution context. Interrupts are
// requested against it like against any other context; masking regions
// opened inside the body belong to it.
func (c *Coro) Context() *Context { return c.ctx }

// State returns the coroutine's lifecycle state.
func (c *Coro) State() CoroState { return c.state }

// LastTransferredFrom returns the coroutine that most recently handed
// control to this one, or nil before first activation.
func (c *Coro) LastTransferredFrom() *Coro { return c.lastFrom }

// Entry returns the value carried by the transfer that first activated the
// coroutine.
func (c *Coro) Entry() any { return c.entry }

// Result returns the body's completion value once the coroutine has
// terminated.
func (c *Coro) Result() any { return c.result }

// Group drives a set of symmetric-transfer coroutines from one host
// context. The host participates as the group's root coroutine: control
// leaves the host through [Group.Transfer] and comes back when a coroutine
// transfers to the root or terminates.
//
// All coroutines of a group execute on the host's execution, one at a
// time, switching only at transfer points.
type Group struct {
	root    *Coro
	current *Coro
}

// NewGroup creates a coroutine group rooted at the host context.
func NewGroup(host *Context) *Group {
	root := &Coro{ctx: host, state: CoroRunning, started: true}
	return &Group{root: root, current: root}
}

// Root returns the coroutine representing the host.
func (g *Group) Root() *Coro { return g.root }

// Current returns the coroutine holding control. From host code that is
// always the root.
func (g *Group) Current() *Coro { return g.current }

// New creates a coroutine in state [CoroCreated]. The body runs on the
// host's execution once the coroutine is first transferred to; it receives
// the coroutine itself for [Coro.Entry], transfers, and masking on its
// context.
func (g *Group) New(body func(*Coro) kont.Eff[any]) *Coro {
	return &Coro{
		ctx:   newContext(Cooperative),
		body:  body,
		state: CoroCreated,
	}
}

// Transfer hands control and v from the host to target and drives the
// group until control returns to the root: either some coroutine transfers
// back to it, or the running coroutine terminates (completion, interrupt
// unwind, or transfer-discipline violation).
//
// The returned value is the one carried by the transfer back to the root,
// or the completion value of the coroutine that terminated. A delivered
// interrupt or an [ErrInvalidTransferTarget] violation terminates the
// coroutine it occurred in — not the host — and is returned as the error.
func (g *Group) Transfer(target *Coro, v any) (any, error) {
	if g.current != g.root {
		return nil, ErrInvalidTransferTarget
	}
	if err := checkTransfer(g.root, target); err != nil {
		return nil, err
	}
	g.root.state = CoroSuspended
	g.root.resumer = target
	return g.trampoline(g.root, target, v)
}

// Resume is the generic (non-symmetric) reactivation valid for ordinary
// cooperative coroutines. Under transfer discipline it only starts a
// [CoroCreated] coroutine; a coroutine suspended via transfer always fails
// with [ErrInvalidTransferTarget], never silently resumes.
func (g *Group) Resume(target *Coro, v any) (any, error) {
	if g.current != g.root {
		return nil, ErrInvalidTransferTarget
	}
	switch target.state {
	case CoroTerminated:
		return nil, ErrTargetTerminated
	case CoroSuspended, CoroRunning:
		return nil, ErrInvalidTransferTarget
	}
	return g.Transfer(target, v)
}

// checkTransfer validates a hand-off from from to to.
func checkTransfer(from, to *Coro) error {
	switch to.state {
	case CoroTerminated:
		return ErrTargetTerminated
	case CoroRunning:
		return ErrInvalidTransferTarget
	case CoroSuspended:
		if to.resumer != from {
			return ErrInvalidTransferTarget
		}
	}
	return nil
}

// trampoline runs coroutines until control returns to the root, switching
// at each Transfer effect. One suspension is in flight at a time; the
// affine Resume of kont suspensions matches the single-holder invariant.
func (g *Group) trampoline(from, cur *Coro, in any) (any, error) {
	for {
		cur.lastFrom = from
		cur.state = CoroRunning
		g.current = cur

		res, susp, iv := g.step(cur, in)
		if iv != nil {
			return nil, g.settle(cur, nil, iv)
		}
		if susp == nil {
			// Body completed: control returns to the root.
			cur.state = CoroTerminated
			cur.result = res
			cur.ctx.Terminate(nil)
			g.current = g.root
			g.root.state = CoroRunning
			return res, nil
		}

		op, ok := susp.Op().(Transfer)
		if !ok {
			panic("intr: unhandled effect in coroutine")
		}
		if op.Target == nil {
			return nil, g.settle(cur, susp, ErrInvalidTransferTarget)
		}
		cur.susp = susp
		cur.state = CoroSuspended
		cur.resumer = op.Target

		if op.Target == g.root {
			if g.root.resumer != cur {
				return nil, g.settle(cur, susp, ErrInvalidTransferTarget)
			}
			g.current = g.root
			g.root.state = CoroRunning
			return op.Value, nil
		}
		if err := checkTransfer(cur, op.Target); err != nil {
			return nil, g.settle(cur, susp, err)
		}
		from, cur, in = cur, op.Target, op.Value
	}
}

// settle terminates a coroutine that violated the transfer discipline or
// was unwound by an interrupt, discards its parked continuation, and hands
// control back to the root. Fatal to the coroutine's context only.
func (g *Group) settle(c *Coro, susp *kont.Suspension[any], err error) error {
	if susp != nil {
		susp.Discard()
	}
	c.susp = nil
	c.state = CoroTerminated
	c.result = err
	c.ctx.Terminate(err)
	g.current = g.root
	g.root.state = CoroRunning
	return err
}

// step activates cur with the transferred value: first activations reify
// the body and step it to its first effect; reactivations resume the
// parked suspension. An interrupt unwind raised at the pre-activation safe
// point or inside the body is caught here and reported as iv.
func (g *Group) step(cur *Coro, in any) (res any, susp *kont.Suspension[any], iv *Interrupt) {
	defer func() {
		if r := recover(); r != nil {
			u, ok := r.(*Interrupt)
			if !ok || !cur.ctx.unwinding {
				panic(r)
			}
			cur.ctx.unwinding = false
			if cur.susp != nil {
				cur.susp.Discard()
				cur.susp = nil
			}
			res, susp, iv = nil, nil, u
		}
	}()

	// Safe point before the coroutine's next instruction runs.
	cur.ctx.poll(false)

	if !cur.started {
		cur.started = true
		cur.entry = in
		res, susp = kont.StepExpr(kont.Reify(cur.body(cur)))
		return
	}
	s := cur.susp
	cur.susp = nil
	res, susp = s.Resume(in)
	return
}
