// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/intr"
	"code.hybscloud.com/iox"
)

func TestMutexLockUnlock(t *testing.T) {
	c := intr.Adopt()
	var m intr.Mutex

	if err := m.Lock(c); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !m.OwnedBy(c) {
		t.Fatal("owner should be the locking context")
	}
	if !c.Holds(&m) {
		t.Fatal("held set should record the mutex")
	}
	if err := m.Unlock(c); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if m.OwnedBy(c) || c.Holds(&m) {
		t.Fatal("unlock should clear ownership")
	}
}

func TestMutexTryLock(t *testing.T) {
	owner := intr.Adopt()
	other := intr.Adopt()
	var m intr.Mutex

	if err := m.TryLock(owner); err != nil {
		t.Fatalf("TryLock free: %v", err)
	}
	if err := m.TryLock(other); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("TryLock held got %v, want ErrWouldBlock", err)
	}
	if err := m.TryLock(owner); !errors.Is(err, intr.ErrRecursiveLock) {
		t.Fatalf("TryLock by owner got %v, want ErrRecursiveLock", err)
	}
	if err := m.Unlock(owner); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := m.TryLock(other); err != nil {
		t.Fatalf("TryLock after unlock: %v", err)
	}
}

func TestMutexUnlockNotOwner(t *testing.T) {
	owner := intr.Adopt()
	other := intr.Adopt()
	var m intr.Mutex

	if err := m.Unlock(other); !errors.Is(err, intr.ErrNotOwner) {
		t.Fatalf("unlock unlocked got %v, want ErrNotOwner", err)
	}
	if err := m.Lock(owner); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := m.Unlock(other); !errors.Is(err, intr.ErrNotOwner) {
		t.Fatalf("unlock by non-owner got %v, want ErrNotOwner", err)
	}
	if !m.OwnedBy(owner) {
		t.Fatal("failed unlock must not change ownership")
	}
}

func TestMutexRecursiveLock(t *testing.T) {
	c := intr.Adopt()
	var m intr.Mutex
	if err := m.Lock(c); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := m.Lock(c); !errors.Is(err, intr.ErrRecursiveLock) {
		t.Fatalf("relock got %v, want ErrRecursiveLock", err)
	}
}

func TestMutexContention(t *testing.T) {
	// Two contexts race Lock: exactly one acquires immediately, the other
	// suspends at the boundary and is woken only after Unlock.
	var m intr.Mutex
	holder := intr.Adopt()
	if err := m.Lock(holder); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	acquired := make(chan struct{})
	waiter := intr.Spawn(func(ctx *intr.Context) error {
		if err := m.Lock(ctx); err != nil {
			return err
		}
		close(acquired)
		return m.Unlock(ctx)
	})

	select {
	case <-acquired:
		t.Fatal("waiter acquired a held mutex")
	case <-time.After(20 * time.Millisecond):
	}

	if err := m.Unlock(holder); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := waiter.Join(); err != nil {
		t.Fatalf("waiter: %v", err)
	}
}

func TestMutexUnsafeDuringInterrupt(t *testing.T) {
	stop := intr.NewKind("stop", nil)
	c := intr.Adopt()
	var m intr.Mutex

	// Outside the unwinding window mutating calls succeed: no false
	// positives.
	if err := m.Lock(c); err != nil {
		t.Fatalf("Lock outside window: %v", err)
	}
	if err := m.Unlock(c); err != nil {
		t.Fatalf("Unlock outside window: %v", err)
	}

	request(c, stop, nil)
	var unwindErrs []error
	var err error
	func() {
		defer intr.Recover(c, &err)
		defer func() {
			// Runs while the delivered interrupt is unwinding.
			unwindErrs = append(unwindErrs, m.Lock(c))
			unwindErrs = append(unwindErrs, m.TryLock(c))
			unwindErrs = append(unwindErrs, m.Unlock(c))
			_, serr := m.SleepWhileHeld(c, time.Millisecond)
			unwindErrs = append(unwindErrs, serr)
		}()
		c.Check()
	}()
	if err == nil {
		t.Fatal("expected interrupt delivery")
	}
	for i, uerr := range unwindErrs {
		if !errors.Is(uerr, intr.ErrUnsafeDuringInterrupt) {
			t.Fatalf("mutating op %d during unwind got %v, want ErrUnsafeDuringInterrupt", i, uerr)
		}
	}

	// Window closed by Recover: mutations work again.
	if lerr := m.Lock(c); lerr != nil {
		t.Fatalf("Lock after Recover: %v", lerr)
	}
}

func TestSleepWhileHeldSpuriousWake(t *testing.T) {
	stop := intr.NewKind("stop", nil)
	c := intr.Adopt()
	var m intr.Mutex
	if err := m.Lock(c); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	reg := intr.Mask(c, stop, intr.Never)
	defer reg.Exit()

	// A masked interrupt arriving during the sleep wakes it early.
	request(c, stop, nil)
	const want = 50 * time.Millisecond
	elapsed, err := m.SleepWhileHeld(c, want)
	if err != nil {
		t.Fatalf("SleepWhileHeld: %v", err)
	}
	if !m.OwnedBy(c) {
		t.Fatal("mutex must be re-acquired after the sleep")
	}

	// Documented contract: re-check elapsed time and re-sleep the rest.
	for elapsed < want {
		var more time.Duration
		more, err = m.SleepWhileHeld(c, want-elapsed)
		if err != nil {
			t.Fatalf("re-sleep: %v", err)
		}
		elapsed += more
	}
	if elapsed < want {
		t.Fatalf("slept %v, want at least %v", elapsed, want)
	}

	// The deferred Exit would unwind on the still-pending interrupt;
	// consume it here instead.
	var derr error
	func() {
		defer intr.Recover(c, &derr)
		reg.Exit()
	}()
	if derr == nil {
		t.Fatal("pending interrupt should flush at Exit")
	}
	if uerr := m.Unlock(c); uerr != nil {
		t.Fatalf("Unlock: %v", uerr)
	}
}

func TestSleepWhileHeldNotOwner(t *testing.T) {
	c := intr.Adopt()
	var m intr.Mutex
	if _, err := m.SleepWhileHeld(c, time.Millisecond); !errors.Is(err, intr.ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
}

func TestSynchronizeInterruptFinishesUnlock(t *testing.T) {
	// An interrupt unwinding the body must not leave the mutex
	// half-transitioned: Synchronize completes the unlock, then delivery
	// resumes.
	stop := intr.NewKind("stop", nil)
	c := intr.Adopt()
	var m intr.Mutex

	var err error
	func() {
		defer intr.Recover(c, &err)
		_ = m.Synchronize(c, func() error {
			request(c, stop, nil)
			c.Check()
			t.Fatal("unreachable: interrupt should unwind the body")
			return nil
		})
	}()
	if err == nil {
		t.Fatal("interrupt should resume after the unlock")
	}
	if m.OwnedBy(c) {
		t.Fatal("Synchronize must release the mutex before re-delivery")
	}
	other := intr.Adopt()
	if terr := m.TryLock(other); terr != nil {
		t.Fatalf("mutex should be free afterwards: %v", terr)
	}
}

func TestSynchronizeNormalPath(t *testing.T) {
	c := intr.Adopt()
	var m intr.Mutex
	ran := false
	err := m.Synchronize(c, func() error {
		ran = true
		if !m.OwnedBy(c) {
			t.Fatal("body should run holding the mutex")
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("Synchronize got %v, ran=%v", err, ran)
	}
	if m.OwnedBy(c) {
		t.Fatal("mutex should be released after the body")
	}
}
