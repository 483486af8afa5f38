// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

import "fmt"

// Interrupt is one requested asynchronous interrupt: a kind plus an opaque
// payload supplied by the requester. A delivered Interrupt unwinds the
// target context and propagates as an ordinary error afterwards.
type Interrupt struct {
	kind    *Kind
	payload any

	// armed is set once the interrupt has been observed under an
	// OnBlocking region. An armed interrupt fires only at a blocking
	// boundary or under an explicitly pushed Immediate region; the
	// default policy of an empty mask stack does not fire it.
	armed bool
}

// Kind returns the interrupt's kind.
func (iv *Interrupt) Kind() *Kind { return iv.kind }

// Payload returns the requester-supplied payload.
func (iv *Interrupt) Payload() any { return iv.payload }

// Error implements error. Delivered interrupts surface through normal
// error propagation once converted by [Recover] or a context runner.
func (iv *Interrupt) Error() string {
	if iv.payload == nil {
		return "intr: interrupt " + iv.kind.name
	}
	return fmt.Sprintf("intr: interrupt %s: %v", iv.kind.name, iv.payload)
}

// Recover converts an in-flight interrupt unwind of ctx into an error and
// ends the unsafe-during-interrupt window. Use in a defer:
//
//	func work(ctx *intr.Context) (err error) {
//		defer intr.Recover(ctx, &err)
//		...
//	}
//
// Panics that are not an interrupt unwind of ctx propagate unchanged.
func Recover(ctx *Context, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	iv, ok := r.(*Interrupt)
	if !ok || !ctx.unwinding {
		panic(r)
	}
	ctx.unwinding = false
	*errp = iv
}
