// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intr

// Kind identifies a class of asynchronous interrupt. Kinds form a tree:
// a masking region governing a kind also governs all of its descendants.
type Kind struct {
	name   string
	parent *Kind
}

// Any is the root kind. A region masking Any governs every interrupt.
var Any = &Kind{name: "any"}

// NewKind creates an interrupt kind below parent.
// A nil parent attaches the kind directly under [Any].
func NewKind(name string, parent *Kind) *Kind {
	if parent == nil {
		parent = Any
	}
	return &Kind{name: name, parent: parent}
}

// Name returns the kind's name.
func (k *Kind) Name() string { return k.name }

// Parent returns the enclosing kind, or nil for [Any].
func (k *Kind) Parent() *Kind { return k.parent }

// Is reports whether k is ancestor or ancestor is one of k's superkinds.
func (k *Kind) Is(ancestor *Kind) bool {
	for x := k; x != nil; x = x.parent {
		if x == ancestor {
			return true
		}
	}
	return false
}

func (k *Kind) String() string { return k.name }
