// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr_test

import (
	"code.hybscloud.com/intr"
)

// deliverNext runs one explicit safe point on c and returns the interrupt
// delivered there, or nil if nothing was eligible. Used by tests that
// observe delivery order one unwind at a time.
func deliverNext(c *intr.Context) *intr.Interrupt {
	var err error
	func() {
		defer intr.Recover(c, &err)
		c.Check()
	}()
	if err == nil {
		return nil
	}
	return err.(*intr.Interrupt)
}

// request queues an interrupt and panics the test on an unexpected failure.
// Tests that exercise the failure paths call intr.RequestInterrupt directly.
func request(c *intr.Context, kind *intr.Kind, payload any) {
	if err := intr.RequestInterrupt(c, kind, payload); err != nil {
		panic("request: " + err.Error())
	}
}
