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

package eof

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-eoffuzz/ops"
)

// NonReturning is the outputs sentinel for code sections that never return
// to their caller.
const NonReturning = 0x80

// CodeSection is one function-like unit of a container: an ordered list of
// basic blocks plus its declared type data. MaxStack is derived and is
// overwritten by every reconciliation.
type CodeSection struct {
	Blocks   []*BasicBlock
	Inputs   int
	Outputs  int
	MaxStack int
}

// NewCodeSection creates an empty section with the given type data.
func NewCodeSection(inputs, outputs, maxStack int) *CodeSection {
	return &CodeSection{Inputs: inputs, Outputs: outputs, MaxStack: maxStack}
}

// fillBlocks decodes one section's flat bytecode into basic blocks. Block
// boundaries are discovered globally first: backward jump targets are only
// known once the whole section has been scanned.
func (s *CodeSection) fillBlocks(code []byte, c *Container) error {
	points := make([]*CodePoint, len(code))

	breaks, err := s.findBreaks(code, points)
	if err != nil {
		return err
	}
	s.propagateStackHeights(points, c)
	s.groupBlocks(breaks, points)
	return nil
}

// findBreaks decodes one code point at a time, filling points (indexed by
// byte offset) and collecting every possible block boundary: jump landing
// sites, the byte after any branch, and the byte after any terminator.
func (s *CodeSection) findBreaks(code []byte, points []*CodePoint) (mapset.Set[int], error) {
	breaks := mapset.NewThreadUnsafeSet(0)
	for index := 0; index < len(code); {
		op := ops.OpCode(code[index])
		if !ops.Valid(op) {
			return nil, fmt.Errorf("%w: opcode %#x at offset %d", ErrUndefinedInstruction, byte(op), index)
		}
		var immLen int
		if ops.HasVariableImmediates(op) {
			// RJUMPV: a case-count byte followed by count+1 16-bit offsets.
			if index+1 >= len(code) {
				return nil, fmt.Errorf("%w: truncated jump table at offset %d", ErrUnexpectedEndOfInput, index)
			}
			immLen = 1 + 2*(int(code[index+1])+1)
		} else {
			immLen = ops.Immediates(op)
		}
		if index+1+immLen > len(code) {
			return nil, fmt.Errorf("%w: truncated immediate at offset %d", ErrUnexpectedEndOfInput, index)
		}
		cp := NewCodePoint(op, code[index+1:index+1+immLen])
		points[index] = cp
		index += cp.Size()

		switch {
		case op == ops.RJUMP || op == ops.RJUMPI:
			breaks.Add(index)
			breaks.Add(index + cp.ImmSigned())
		case op == ops.RJUMPV:
			breaks.Add(index)
			for _, rel := range cp.JumpTable() {
				breaks.Add(index + rel)
			}
		case ops.Terminating(op):
			breaks.Add(index)
		}
	}
	return breaks, nil
}

// propagateStackHeights runs the forward bounding pass over the code points
// in byte order. The container is presumed structurally valid on entry:
// backward jump targets have already been merged by the time the jump is
// seen, so only forward targets are propagated into.
func (s *CodeSection) propagateStackHeights(points []*CodePoint, c *Container) {
	stackMin, stackMax := s.Inputs, s.Inputs
	for i, cp := range points {
		if cp == nil {
			continue
		}
		cp.EnterStack(stackMin, stackMax)

		delta := c.StackDelta(cp)
		stackMin += delta
		stackMax += delta
		next := i + cp.Size()

		// A mutated container may carry a stale immediate whose target lands
		// mid-instruction or past the section; such targets get no interval.
		switch cp.Op {
		case ops.RJUMP, ops.RJUMPI:
			if rel := cp.ImmSigned(); rel > 0 {
				if idx := next + rel; idx < len(points) && points[idx] != nil {
					points[idx].EnterStack(stackMin, stackMax)
				}
			}
		case ops.RJUMPV:
			for _, rel := range cp.JumpTable() {
				if rel <= 0 {
					continue
				}
				if idx := next + rel; idx < len(points) && points[idx] != nil {
					points[idx].EnterStack(stackMin, stackMax)
				}
			}
		}

		if ops.Terminating(cp.Op) && next < len(points) {
			// The next point is only reachable as a jump target; continue
			// from whatever interval forward jumps have accumulated there.
			if target := points[next]; target != nil {
				stackMin, stackMax = target.StackMin, target.StackMax
			}
		}
	}
}

// groupBlocks re-walks the decoded points in byte order and cuts a new block
// at every break point. Successors are attached only to branch-terminated
// blocks, fallthrough label first.
func (s *CodeSection) groupBlocks(breaks mapset.Set[int], points []*CodePoint) {
	var block *BasicBlock
	for i, cp := range points {
		if breaks.Contains(i) && block != nil {
			s.Blocks = append(s.Blocks, block)
			block = nil
		}
		if cp == nil {
			continue
		}
		if block == nil {
			block = NewBasicBlock(i)
		}
		end := i + cp.Size()
		switch cp.Op {
		case ops.RJUMP, ops.RJUMPI:
			block.Successors = []int{end, end + cp.ImmSigned()}
		case ops.RJUMPV:
			succ := []int{end}
			for _, rel := range cp.JumpTable() {
				succ = append(succ, end+rel)
			}
			block.Successors = succ
		}
		block.Append(cp)
	}
	if block != nil {
		s.Blocks = append(s.Blocks, block)
	}
}

// reconcile re-derives everything mutation may have invalidated: block
// offsets, branch immediates and the stack-height intervals, in that order.
// sections is the full section list of the owning container, needed to
// resolve CALLF deltas. The pass is idempotent.
func (s *CodeSection) reconcile(sections []*CodeSection) {
	blockByLabel := make(map[int]*BasicBlock, len(s.Blocks))
	for _, b := range s.Blocks {
		blockByLabel[b.Label] = b
	}

	// Layout: offsets are a running prefix sum over the blocks in their
	// current order.
	offset := 0
	for _, b := range s.Blocks {
		b.Offset = offset
		offset += b.CodeSize()
	}

	// Relink: a branch is always the last code point of its block, and its
	// encoded offset is relative to the end of the block.
	end := 0
	for _, b := range s.Blocks {
		end += b.CodeSize()
		if len(b.Successors) < 2 {
			continue
		}
		cp := b.Code[len(b.Code)-1]
		switch cp.Op {
		case ops.RJUMP, ops.RJUMPI:
			cp.Immediate = signed16(blockByLabel[b.Successors[1]].Offset - end)
		case ops.RJUMPV:
			// Rewrite the table entries in place, leaving the count byte.
			for i, label := range b.Successors[1:] {
				rel := signed16(blockByLabel[label].Offset - end)
				cp.Immediate[i*2+1] = rel[0]
				cp.Immediate[i*2+2] = rel[1]
			}
		}
	}

	// Reflow: reset all intervals, then a forward pass in block order.
	// Fallthrough carries the running interval across block ends; jump
	// targets receive the post-block interval through Successors[1:].
	for _, b := range s.Blocks {
		for _, cp := range b.Code {
			cp.ResetStack()
		}
	}
	if len(s.Blocks) > 0 && len(s.Blocks[0].Code) > 0 {
		first := s.Blocks[0].Code[0]
		first.StackMin = s.Inputs
		first.StackMax = s.Inputs
	}
	var (
		nextMin, nextMax int
		continuing       bool
	)
	for _, b := range s.Blocks {
		for _, cp := range b.Code {
			if continuing {
				cp.EnterStack(nextMin, nextMax)
			}
			delta := sectionStackDelta(sections, cp)
			nextMin = cp.StackMin + delta
			nextMax = cp.StackMax + delta
			continuing = !ops.Terminating(cp.Op)
		}
		if len(b.Successors) > 1 {
			for _, label := range b.Successors[1:] {
				if target := blockByLabel[label]; target != nil && len(target.Code) > 0 {
					target.Code[0].EnterStack(nextMin, nextMax)
				}
			}
		}
	}
	maxStack := s.Inputs
	for _, b := range s.Blocks {
		for _, cp := range b.Code {
			if cp.StackMax > maxStack {
				maxStack = cp.StackMax
			}
		}
	}
	s.MaxStack = maxStack
}

// sectionStackDelta resolves the net stack effect of a code point, consulting
// the callee's declared arity for CALLF. An out-of-range section index is a
// contract violation and panics.
func sectionStackDelta(sections []*CodeSection, cp *CodePoint) int {
	if cp.Op == ops.CALLF {
		callee := sections[cp.ImmUnsigned()]
		return callee.Outputs - callee.Inputs
	}
	return ops.StackDelta(cp.Op)
}

// CodeSize returns the serialized byte length of the whole section.
func (s *CodeSection) CodeSize() int {
	size := 0
	for _, b := range s.Blocks {
		size += b.CodeSize()
	}
	return size
}

// Bytecode returns the section's code bytes, blocks in order.
func (s *CodeSection) Bytecode() []byte {
	out := make([]byte, 0, s.CodeSize())
	for _, b := range s.Blocks {
		out = append(out, b.Bytecode()...)
	}
	return out
}

// typeData returns the four type bytes of the section: inputs, outputs and
// the big-endian max stack height.
func (s *CodeSection) typeData() []byte {
	return []byte{byte(s.Inputs), byte(s.Outputs), byte(s.MaxStack >> 8), byte(s.MaxStack)}
}

func (s *CodeSection) String() string {
	parts := make([]string, len(s.Blocks))
	for i, b := range s.Blocks {
		parts[i] = b.String()
	}
	return strings.Join(parts, "=")
}

// signed16 encodes a relative offset as a signed 16-bit big-endian value.
func signed16(v int) []byte {
	return []byte{byte(v >> 8), byte(v)}
}
