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
	"slices"
	"strings"
)

// BasicBlock is a maximal straight-line run of code points. Only the last
// point may be a branch or terminator. Label is the byte offset the block
// originated at and stays stable across mutation; Offset is reassigned by
// every layout pass.
type BasicBlock struct {
	Label int
	Code  []*CodePoint

	// Successors holds block labels: the fallthrough label first, then the
	// jump targets for a branch-terminated block. Non-branching blocks have
	// no successors recorded.
	Successors []int

	Offset int
}

// NewBasicBlock creates an empty block with the given label.
func NewBasicBlock(label int) *BasicBlock {
	return &BasicBlock{Label: label}
}

// Append adds a code point at the end of the block.
func (b *BasicBlock) Append(cp *CodePoint) {
	b.Code = append(b.Code, cp)
}

// Insert places a code point at the given position.
func (b *BasicBlock) Insert(pos int, cp *CodePoint) {
	b.Code = slices.Insert(b.Code, pos, cp)
}

// Remove deletes and returns the code point at the given position.
func (b *BasicBlock) Remove(pos int) *CodePoint {
	cp := b.Code[pos]
	b.Code = slices.Delete(b.Code, pos, pos+1)
	return cp
}

// CodeSize returns the number of bytes the block serializes to. It is always
// recomputed: mutations may compose before any reconciliation runs, so a
// cached value cannot be trusted across calls.
func (b *BasicBlock) CodeSize() int {
	size := 0
	for _, cp := range b.Code {
		size += cp.Size()
	}
	return size
}

// Bytecode returns the serialized code points of the block.
func (b *BasicBlock) Bytecode() []byte {
	out := make([]byte, 0, b.CodeSize())
	for _, cp := range b.Code {
		out = append(out, cp.Bytecode()...)
	}
	return out
}

func (b *BasicBlock) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "i%d/", b.Label)
	for _, cp := range b.Code {
		sb.WriteString(cp.String())
	}
	if len(b.Successors) > 0 {
		sb.WriteString("->")
		for i, s := range b.Successors {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "i%d", s)
		}
	}
	return sb.String()
}
