// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

// Policy governs whether and when a masked interrupt kind may be delivered
// into the context holding the region.
type Policy uint8

const (
	// Never defers matching interrupts while the region is open.
	Never Policy = iota
	// OnBlocking delivers matching interrupts only at blocking boundaries.
	OnBlocking
	// Immediate delivers matching interrupts at the next safe point.
	// This is the effective policy when no region matches.
	Immediate
)

func (p Policy) String() string {
	switch p {
	case Never:
		return "never"
	case OnBlocking:
		return "on_blocking"
	default:
		return "immediate"
	}
}

// regionFrame is one open masking region on a context's stack.
type regionFrame struct {
	kind   *Kind
	policy Policy
}

// Region is the scoped guard returned by [Mask]. Exit pops the region on
// all exit paths; arrange it with defer.
type Region struct {
	c      *Context
	depth  int
	exited bool
}

// Mask pushes a masking region for kind onto the calling context's own
// stack and returns its guard. A nil kind masks every interrupt.
//
// If the push makes a pending interrupt eligible (escalation: e.g. pushing
// Immediate inside an open Never region), the interrupt is delivered at the
// Mask call itself, before any code under the new region runs; the region
// is popped again first, so the guard is never armed. Context-owned.
func Mask(c *Context, kind *Kind, policy Policy) *Region {
	if kind == nil {
		kind = Any
	}
	c.regions = append(c.regions, regionFrame{kind: kind, policy: policy})
	if iv := c.take(false); iv != nil {
		c.regions = c.regions[:len(c.regions)-1]
		c.deliver(iv)
	}
	return &Region{c: c, depth: len(c.regions)}
}

// Exit pops the region. Idempotent; regions nested inside that were not
// exited themselves are popped along with it.
//
// Exiting while interrupts of the region's kind are pending flushes them:
// if the now-effective policy makes one eligible, the oldest such interrupt
// unwinds at the Exit call, before any subsequent caller code runs. During
// an interrupt unwind, Exit only pops; no further delivery happens.
func (r *Region) Exit() {
	if r.exited {
		return
	}
	r.exited = true
	c := r.c
	if len(c.regions) >= r.depth {
		c.regions = c.regions[:r.depth-1]
	}
	c.poll(false)
}

// WithMask runs body under a masking region for kind, exiting the region on
// all paths. Equivalent to Mask + defer Exit. Context-owned.
func WithMask(c *Context, kind *Kind, policy Policy, body func() error) error {
	r := Mask(c, kind, policy)
	defer r.Exit()
	return body()
}

// effectivePolicy returns the policy of the innermost open region matching
// kind, and whether such a region exists. Without a match the default is
// Immediate.
func (c *Context) effectivePolicy(kind *Kind) (Policy, bool) {
	for i := len(c.regions) - 1; i >= 0; i-- {
		if kind.Is(c.regions[i].kind) {
			return c.regions[i].policy, true
		}
	}
	return Immediate, false
}
