// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// Mutex is an ownership-tracked lock. The owner serial and the locked flag
// are one atomic word (owner 0 ⇔ unlocked), so the pair can never be
// observed mid-transition: locked-without-owner is unrepresentable and
// ownership never moves without passing through the unlocked state.
//
// Mutating operations refuse to run while the calling context is unwinding
// a delivered interrupt, returning [ErrUnsafeDuringInterrupt]. That is the
// central correctness property: an asynchronous interrupt can never leave a
// lock transition half-performed.
//
// The zero Mutex is unlocked and ready for use.
type Mutex struct {
	word atomix.Uint32
}

// Lock blocks the calling context until the mutex is free, then acquires
// it. The wait is a blocking boundary: OnBlocking interrupts are eligible
// while contended. Acquisition order among contenders is unspecified.
//
// Lock returns [ErrRecursiveLock] if ctx already owns the mutex and
// [ErrUnsafeDuringInterrupt] during an interrupt unwind. Once Lock returns
// nil the lock is held; no delivery happens between acquisition and return.
func (m *Mutex) Lock(ctx *Context) error {
	if ctx.unwinding {
		return ErrUnsafeDuringInterrupt
	}
	if m.word.Load() == ctx.serial {
		return ErrRecursiveLock
	}
	if m.word.CompareAndSwap(0, ctx.serial) {
		ctx.held[m] = struct{}{}
		return nil
	}
	ctx.blocking++
	defer func() { ctx.blocking-- }()
	var bo iox.Backoff
	for !m.word.CompareAndSwap(0, ctx.serial) {
		ctx.poll(true)
		bo.Wait()
	}
	ctx.held[m] = struct{}{}
	return nil
}

// TryLock attempts to acquire the mutex without waiting. It returns
// [code.hybscloud.com/iox.ErrWouldBlock] when the mutex is held elsewhere.
func (m *Mutex) TryLock(ctx *Context) error {
	if ctx.unwinding {
		return ErrUnsafeDuringInterrupt
	}
	if m.word.Load() == ctx.serial {
		return ErrRecursiveLock
	}
	if !m.word.CompareAndSwap(0, ctx.serial) {
		return iox.ErrWouldBlock
	}
	ctx.held[m] = struct{}{}
	return nil
}

// Unlock releases the mutex. It returns [ErrNotOwner] if ctx is not the
// current owner and [ErrUnsafeDuringInterrupt] during an interrupt unwind.
func (m *Mutex) Unlock(ctx *Context) error {
	if ctx.unwinding {
		return ErrUnsafeDuringInterrupt
	}
	if !m.word.CompareAndSwap(ctx.serial, 0) {
		return ErrNotOwner
	}
	delete(ctx.held, m)
	return nil
}

// OwnedBy reports whether ctx is the current owner. Callers use it to
// decide whether to defensively re-acquire after a possible interruption.
func (m *Mutex) OwnedBy(ctx *Context) bool {
	return m.word.Load() == ctx.serial
}

// SleepWhileHeld releases the mutex, sleeps up to d, re-acquires, and
// returns the time that actually elapsed.
//
// The sleep may end early (spurious wake), in particular when an interrupt
// arrives that the current mask defers. Callers must re-check the elapsed
// time and re-sleep the remainder; this is documented behavior, not a
// defect. Both the sleep and the re-acquisition are blocking boundaries.
func (m *Mutex) SleepWhileHeld(ctx *Context, d time.Duration) (time.Duration, error) {
	if ctx.unwinding {
		return 0, ErrUnsafeDuringInterrupt
	}
	if !m.word.CompareAndSwap(ctx.serial, 0) {
		return 0, ErrNotOwner
	}
	delete(ctx.held, m)
	start := time.Now()

	func() {
		ctx.blocking++
		// The decrement is deferred so an unwind delivered during the
		// sleep leaves the blocking depth balanced.
		defer func() { ctx.blocking-- }()
		var bo iox.Backoff
		for time.Since(start) < d {
			ctx.poll(true)
			if ctx.flagged.Load() != 0 || len(ctx.pending) > 0 {
				break // masked interrupt arrived: spurious wake
			}
			bo.Wait()
		}
	}()

	err := m.Lock(ctx)
	return time.Since(start), err
}

// Synchronize runs body while holding the mutex, releasing it on all exit
// paths. If body is unwound by a delivered interrupt, the unwind is parked
// so the unlock completes outside the unsafe window, then delivery resumes:
// the mutation finishes as a unit before the interrupt proceeds.
func (m *Mutex) Synchronize(ctx *Context, body func() error) error {
	if err := m.Lock(ctx); err != nil {
		return err
	}
	var parked *Interrupt
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				iv, ok := r.(*Interrupt)
				if !ok || !ctx.unwinding {
					panic(r)
				}
				ctx.unwinding = false
				parked = iv
			}
		}()
		return body()
	}()
	uerr := m.Unlock(ctx)
	if parked != nil {
		ctx.deliver(parked)
	}
	if err != nil {
		return err
	}
	return uerr
}
