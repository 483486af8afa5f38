// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

import "errors"

var (
	// ErrTargetTerminated reports an interrupt request or a transfer
	// against a context that has already terminated. Recoverable.
	ErrTargetTerminated = errors.New("intr: target context terminated")

	// ErrUnsafeDuringInterrupt reports a mutating mutex operation
	// attempted while the calling context is unwinding a delivered
	// interrupt. The operation is not performed.
	ErrUnsafeDuringInterrupt = errors.New("intr: mutex mutation during interrupt delivery")

	// ErrNotOwner reports an unlock or sleep by a context that does not
	// own the mutex.
	ErrNotOwner = errors.New("intr: mutex not owned by calling context")

	// ErrInvalidTransferTarget reports an asymmetric reactivation: resuming
	// a transfer-suspended coroutine from anything other than its recorded
	// hand-off partner. Fatal to the offending coroutine's context.
	ErrInvalidTransferTarget = errors.New("intr: coroutine not resumable by this context")

	// ErrRecursiveLock reports a lock attempt by the current owner,
	// which would otherwise self-deadlock.
	ErrRecursiveLock = errors.New("intr: recursive lock would deadlock")
)
