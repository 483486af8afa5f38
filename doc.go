// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package intr provides masked asynchronous interrupt delivery for execution
// contexts, together with the ownership-tracked mutex and symmetric-transfer
// coroutine discipline that interoperate with it.
//
// An asynchronous interrupt (a cancellation, a timeout, a cross-context
// exception) is requested by any actor via [RequestInterrupt] and delivered
// into the target [Context] only at well-defined safe points, governed by a
// per-context stack of masking regions.
//
// # Architecture
//
//   - Transport: each context carries a bounded lock-free inbox via
//     [code.hybscloud.com/lfq]. Requesters are serialized through an atomic
//     latch so the single-producer invariant holds; the context itself is
//     the only consumer.
//   - Masking: [Mask] pushes a [Policy] region for an interrupt [Kind] onto
//     the calling context's own stack; the innermost matching region wins,
//     defaulting to [Immediate]. Regions nest and flush on [Region.Exit].
//   - Safe points: [Context.Check], region enter/exit, blocking boundaries
//     ([NotifyBlockingEnter]/[NotifyBlockingExit], mutex waits). Delivery
//     never happens mid-instruction.
//   - Delivery: an eligible interrupt unwinds the target as a panic carrying
//     the [*Interrupt]; [Recover] converts the unwind into an error at
//     application frames. While a context is unwinding, mutating operations
//     on [Mutex] fail with [ErrUnsafeDuringInterrupt].
//   - Waiting: all blocking paths use [code.hybscloud.com/iox.Backoff];
//     the package spawns no goroutines and creates no channels of its own
//     except the one goroutine backing each [Spawn]ed context.
//   - Coroutines: cooperative contexts are [Coro] values driven one effect
//     at a time on [code.hybscloud.com/kont] suspensions. Control moves only
//     through strict symmetric [Transfer] pairs; generic resumption of a
//     transfer-suspended coroutine fails with [ErrInvalidTransferTarget].
//
// # Ownership
//
// A context's mask stack, pending list, and held-mutex set are mutated only
// by the context's own execution. External actors interact with a context
// solely through [RequestInterrupt]. Operations documented as context-owned
// ([Mask], [Context.Check], [Context.PendingInterrupt], blocking notifiers,
// all [Mutex] methods taking the context) must be called from the execution
// the handle was created for.
//
// # Policies
//
//   - [Never]: matching interrupts stay queued while the region is open.
//   - [OnBlocking]: matching interrupts are delivered only at a blocking
//     boundary. An interrupt observed under this policy stays armed for
//     blocking-boundary delivery even after the region exits, until an
//     explicitly pushed [Immediate] region governs it.
//   - [Immediate]: matching interrupts are delivered at the next safe point.
//
// # Example
//
//	stop := intr.NewKind("stop", nil)
//	c := intr.Spawn(func(ctx *intr.Context) (err error) {
//		defer intr.Recover(ctx, &err)
//		reg := intr.Mask(ctx, stop, intr.Never)
//		defer reg.Exit()
//		prepare()        // cannot be interrupted by stop
//		ctx.Check()      // still masked, stays pending
//		return nil       // Exit flushes: pending stop unwinds here
//	})
//	intr.RequestInterrupt(c, stop, "deadline")
//	err := c.Join()      // err is the delivered *intr.Interrupt
package intr
