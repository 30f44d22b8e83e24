// Copyright 2025 The go-eoffuzz Authors
// This file is part of the go-eoffuzz library.
//
// The go-eoffuzz library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-eoffuzz library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-eoffuzz library. If not, see <http://www.gnu.org/licenses/>.

// Package eof models EOF containers as a control-flow graph of basic blocks.
// A container is decoded from its binary form, mutated structurally, and then
// reconciled so that block offsets, relative jump immediates and stack-height
// bounds are consistent again before re-encoding.
package eof

import (
	"fmt"

	"github.com/ethereum/go-eoffuzz/ops"
)

// stackSentinel is one past the EVM stack limit. A code point whose StackMin
// still holds this value has not been reached by the propagation pass.
const stackSentinel = 1025

// CodePoint is one decoded instruction together with its immediate bytes and
// the accumulated range of stack depths it may be entered with.
type CodePoint struct {
	Op        ops.OpCode
	Immediate []byte

	StackMin int
	StackMax int
}

// NewCodePoint creates a code point with an unset stack range.
func NewCodePoint(op ops.OpCode, immediate []byte) *CodePoint {
	return &CodePoint{
		Op:        op,
		Immediate: immediate,
		StackMin:  stackSentinel,
		StackMax:  0,
	}
}

// Size returns the number of code bytes the point occupies.
func (cp *CodePoint) Size() int {
	return 1 + len(cp.Immediate)
}

// ImmSigned interprets the immediate as a signed big-endian integer.
func (cp *CodePoint) ImmSigned() int {
	v := 0
	for _, b := range cp.Immediate {
		v = v<<8 | int(b)
	}
	if n := len(cp.Immediate); n > 0 && cp.Immediate[0]&0x80 != 0 {
		v -= 1 << (8 * n)
	}
	return v
}

// ImmUnsigned interprets the immediate as an unsigned big-endian integer.
func (cp *CodePoint) ImmUnsigned() int {
	v := 0
	for _, b := range cp.Immediate {
		v = v<<8 | int(b)
	}
	return v
}

// JumpTable decodes the RJUMPV immediate into its list of signed relative
// offsets. The count byte encodes the table size minus one.
func (cp *CodePoint) JumpTable() []int {
	count := int(cp.Immediate[0]) + 1
	targets := make([]int, count)
	for i := 0; i < count; i++ {
		v := int(cp.Immediate[i*2+1])<<8 | int(cp.Immediate[i*2+2])
		if v >= 1<<15 {
			v -= 1 << 16
		}
		targets[i] = v
	}
	return targets
}

// EnterStack merges an incoming stack-depth interval into the accumulated
// range of this point.
func (cp *CodePoint) EnterStack(min, max int) {
	if min < cp.StackMin {
		cp.StackMin = min
	}
	if max > cp.StackMax {
		cp.StackMax = max
	}
}

// ResetStack puts the range back to the unset sentinel state.
func (cp *CodePoint) ResetStack() {
	cp.StackMin = stackSentinel
	cp.StackMax = 0
}

// Bytecode returns the code bytes of the point, opcode followed by immediate.
func (cp *CodePoint) Bytecode() []byte {
	b := make([]byte, 0, cp.Size())
	b = append(b, byte(cp.Op))
	return append(b, cp.Immediate...)
}

func (cp *CodePoint) String() string {
	return fmt.Sprintf("%02x%x[%d,%d]", byte(cp.Op), cp.Immediate, cp.StackMin, cp.StackMax)
}
