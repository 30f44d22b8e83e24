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

package mutate

import (
	"math/rand"

	"github.com/ethereum/go-eoffuzz/eof"
	"github.com/ethereum/go-eoffuzz/ops"
)

// simpleOpcodes is every EOF-valid opcode eligible for blind balanced
// insertion: no control flow, no data-section access, no pushes/pops, and no
// opcodes whose stack reach depends on their immediate.
var simpleOpcodes = buildSimpleOpcodes()

func buildSimpleOpcodes() []ops.OpCode {
	excluded := map[ops.OpCode]bool{
		ops.STOP: true, ops.POP: true,
		ops.DATALOAD: true, ops.DATALOADN: true, ops.DATASIZE: true, ops.DATACOPY: true,
		ops.RJUMP: true, ops.RJUMPI: true, ops.RJUMPV: true,
		ops.CALLF: true, ops.RETF: true, ops.JUMPF: true,
		ops.DUPN: true, ops.SWAPN: true, ops.EXCHANGE: true,
		ops.EOFCREATE: true, ops.RETURNCONTRACT: true,
		ops.RETURN: true, ops.REVERT: true, ops.INVALID: true,
		ops.EXTCALL: true, ops.EXTDELEGATECALL: true, ops.EXTSTATICCALL: true,
	}
	var eligible []ops.OpCode
	for i := 0; i < 256; i++ {
		op := ops.OpCode(i)
		if ops.Valid(op) && !op.IsPush() && !excluded[op] {
			eligible = append(eligible, op)
		}
	}
	return eligible
}

// stackOpcodes reach arbitrarily deep into the stack, with the depth encoded
// in their immediate byte.
var stackOpcodes = []ops.OpCode{ops.DUPN, ops.SWAPN, ops.EXCHANGE}

// insertBalanced inserts one code point at the given slot, padded so that
// the stack expectation of the following instruction is preserved: zero
// pushes first to satisfy the opcode's minimum incoming depth, then pushes
// or pops after it to restore the net effect the next instruction assumed.
func insertBalanced(c *eof.Container, loc location, cp *eof.CodePoint) {
	section := c.Sections[loc.section]
	block := section.Blocks[loc.block]

	preHeight := 0
	if loc.pos > 0 {
		pre := block.Code[loc.pos-1]
		preHeight = pre.StackMin + c.StackDelta(pre)
	}
	postHeight := preHeight
	if loc.pos < len(block.Code) {
		postHeight = block.Code[loc.pos].StackMin
	}

	popped := ops.StackPopped(cp.Op)
	pushed := ops.StackPushed(cp.Op)
	need := ops.MinStack(cp.Op, cp.Immediate)
	if popped > need {
		need = popped
	}
	prePush := need - preHeight
	if prePush < 0 {
		prePush = 0
	}
	// delta is what the pre-pushes plus the new opcode leave on the stack
	// beyond what the next instruction already expected.
	delta := postHeight - preHeight - pushed + popped - prePush

	for i := 0; i < delta; i++ {
		block.Insert(loc.pos, eof.NewCodePoint(ops.PUSH0, nil))
	}
	for i := 0; i > delta; i-- {
		block.Insert(loc.pos, eof.NewCodePoint(ops.POP, nil))
	}
	block.Insert(loc.pos, cp)
	for i := 0; i < prePush; i++ {
		block.Insert(loc.pos, eof.NewCodePoint(ops.PUSH0, nil))
	}

	section.Blocks[loc.block] = flattenBlock(block)
}

// InsertSimpleBalanced inserts a random simple opcode with balancing pushes
// and pops around it.
type InsertSimpleBalanced struct{}

func (InsertSimpleBalanced) Name() string  { return "insert-simple-balanced" }
func (InsertSimpleBalanced) Priority() int { return 1 }

func (InsertSimpleBalanced) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc := randomLocation(c, rnd, true)
	op := simpleOpcodes[rnd.Intn(len(simpleOpcodes))]
	insertBalanced(c, loc, eof.NewCodePoint(op, nil))
	return applied("insert %v balanced section %d block %d pos %d",
		op, loc.section, loc.block, loc.pos), nil
}

// InsertStackOpBalanced inserts a DUPN/SWAPN/EXCHANGE with a random depth
// immediate, padding the stack deep enough for the opcode to be legal.
type InsertStackOpBalanced struct{}

func (InsertStackOpBalanced) Name() string  { return "insert-stackop-balanced" }
func (InsertStackOpBalanced) Priority() int { return 1 }

func (InsertStackOpBalanced) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc := randomLocation(c, rnd, true)
	op := stackOpcodes[rnd.Intn(len(stackOpcodes))]
	immediate := []byte{byte(rnd.Intn(256))}
	insertBalanced(c, loc, eof.NewCodePoint(op, immediate))
	return applied("insert %v %#x balanced section %d block %d pos %d",
		op, immediate[0], loc.section, loc.block, loc.pos), nil
}

// DeleteBalanced removes a random code point and pads the block with pushes
// or pops matching the removed opcode's net stack effect.
type DeleteBalanced struct{}

func (DeleteBalanced) Name() string  { return "delete-balanced" }
func (DeleteBalanced) Priority() int { return 1 }

func (DeleteBalanced) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc := randomLocation(c, rnd, false)
	section := c.Sections[loc.section]
	block := section.Blocks[loc.block]

	cp := block.Remove(loc.pos)
	if loc.pos >= len(block.Code) && ops.Terminating(cp.Op) {
		// A block must keep ending in its branch or terminator. The caller
		// discards the container on a skip, so the removal needs no undo.
		return skipped("removing terminal opcode at end of basic block"), nil
	}

	net := c.StackDelta(cp)
	for i := 0; i < net; i++ {
		block.Append(eof.NewCodePoint(ops.PUSH0, nil))
	}
	for i := 0; i > net; i-- {
		block.Append(eof.NewCodePoint(ops.POP, nil))
	}
	if len(block.Code) == 0 {
		// Keep the block label addressable for jumps targeting it.
		block.Append(eof.NewCodePoint(ops.NOOP, nil))
	}
	section.Blocks[loc.block] = flattenBlock(block)

	return applied("balanced delete section %d block %d pos %d",
		loc.section, loc.block, loc.pos), nil
}

// dataOpcodes access the container's trailing data segment.
var dataOpcodes = []ops.OpCode{ops.DATALOAD, ops.DATALOADN, ops.DATASIZE, ops.DATACOPY}

// InsertDataOp inserts a data-access opcode together with the pushes that
// supply its operands, growing the data segment when the referenced extent
// lies beyond it.
type InsertDataOp struct{}

func (InsertDataOp) Name() string  { return "insert-data-op" }
func (InsertDataOp) Priority() int { return 1 }

func (InsertDataOp) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc := randomLocation(c, rnd, true)
	op := dataOpcodes[rnd.Intn(len(dataOpcodes))]

	size := 32
	if op == ops.DATACOPY || op == ops.DATASIZE {
		size = 1 + rnd.Intn(0x100)
	}
	offset := rnd.Intn(0x100 - size + 1)
	if extent := offset + size; len(c.Data) < extent {
		c.Data = append(c.Data, randomBytes(rnd, extent-len(c.Data))...)
		c.DataLen = extent
	}

	var points []*eof.CodePoint
	switch op {
	case ops.DATALOAD:
		points = []*eof.CodePoint{
			eof.NewCodePoint(ops.PUSH2, uint16Bytes(offset)),
			eof.NewCodePoint(op, nil),
			eof.NewCodePoint(ops.POP, nil),
		}
	case ops.DATALOADN:
		points = []*eof.CodePoint{
			eof.NewCodePoint(op, uint16Bytes(offset)),
			eof.NewCodePoint(ops.POP, nil),
		}
	case ops.DATACOPY:
		points = []*eof.CodePoint{
			eof.NewCodePoint(ops.PUSH2, uint16Bytes(size)),
			eof.NewCodePoint(ops.PUSH2, uint16Bytes(offset)),
			eof.NewCodePoint(ops.PUSH2, uint16Bytes(rnd.Intn(0x2000))),
			eof.NewCodePoint(op, nil),
		}
	default: // DATASIZE
		points = []*eof.CodePoint{
			eof.NewCodePoint(op, nil),
			eof.NewCodePoint(ops.POP, nil),
		}
	}

	section := c.Sections[loc.section]
	block := section.Blocks[loc.block]
	for i, cp := range points {
		block.Insert(loc.pos+i, cp)
	}
	section.Blocks[loc.block] = flattenBlock(block)

	return applied("insert %v section %d block %d pos %d",
		op, loc.section, loc.block, loc.pos), nil
}

func uint16Bytes(v int) []byte {
	return []byte{byte(v >> 8), byte(v)}
}
