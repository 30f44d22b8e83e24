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

// Package mutate implements the EOF container mutation strategies and the
// weighted mutator that drives them. Strategies perturb a decoded container
// in place and stay stack-balanced by construction; the caller reconciles
// and re-encodes afterwards.
package mutate

import (
	"fmt"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethereum/go-eoffuzz/eof"
	"github.com/ethereum/go-eoffuzz/ops"
)

// Result reports the outcome of one mutation attempt. Finding no eligible
// target is an expected, frequent outcome and is reported as a non-applied
// result rather than an error.
type Result struct {
	Applied bool
	Desc    string
}

func applied(format string, args ...interface{}) Result {
	return Result{Applied: true, Desc: fmt.Sprintf(format, args...)}
}

func skipped(reason string) Result {
	return Result{Desc: reason}
}

// Context carries fuzz-relevant inputs supplied by the enclosing test
// fixture, such as the known account addresses.
type Context struct {
	// Addresses is the sorted list of accounts present in the fixture's
	// pre-state.
	Addresses []common.Address
}

// Strategy mutates a container in place. Implementations must leave the
// container structurally plausible (stack-balanced code, addressable block
// labels); jump immediates and stack intervals are repaired by the caller
// through Reconcile.
type Strategy interface {
	Name() string
	Priority() int
	Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error)
}

// location addresses one code point (or insertion slot) in a container.
type location struct {
	section int
	block   int
	pos     int
}

// randomLocation picks a uniformly random (section, block, pos) triple. With
// forInsert the position may also be one past the last code point.
func randomLocation(c *eof.Container, rnd *rand.Rand, forInsert bool) location {
	si := rnd.Intn(len(c.Sections))
	section := c.Sections[si]
	bi := rnd.Intn(len(section.Blocks))
	block := section.Blocks[bi]
	n := len(block.Code)
	if forInsert {
		n++
	}
	return location{section: si, block: bi, pos: rnd.Intn(n)}
}

// findOpcode searches for a code point matching the predicate, starting at a
// random location and wrapping: rest of the current block, following blocks,
// following sections, then from the container start back to the starting
// section.
func findOpcode(c *eof.Container, rnd *rand.Rand, match func(ops.OpCode) bool) (location, bool) {
	start := randomLocation(c, rnd, false)

	section := c.Sections[start.section]
	block := section.Blocks[start.block]
	for pos := start.pos; pos < len(block.Code); pos++ {
		if match(block.Code[pos].Op) {
			return location{start.section, start.block, pos}, true
		}
	}
	for bi := start.block + 1; bi < len(section.Blocks); bi++ {
		if pos, ok := scanBlock(section.Blocks[bi], match); ok {
			return location{start.section, bi, pos}, true
		}
	}
	for si := start.section + 1; si < len(c.Sections); si++ {
		for bi, b := range c.Sections[si].Blocks {
			if pos, ok := scanBlock(b, match); ok {
				return location{si, bi, pos}, true
			}
		}
	}
	// Wrap around. The starting section is rescanned wholesale; the overlap
	// only matters when nothing matches anyway.
	for si := 0; si <= start.section; si++ {
		for bi, b := range c.Sections[si].Blocks {
			if pos, ok := scanBlock(b, match); ok {
				return location{si, bi, pos}, true
			}
		}
	}
	return location{}, false
}

func scanBlock(b *eof.BasicBlock, match func(ops.OpCode) bool) (int, bool) {
	for pos, cp := range b.Code {
		if match(cp.Op) {
			return pos, true
		}
	}
	return 0, false
}

// flattenBlock removes all adjacent PUSHx/POP and POP/PUSHx pairs from a
// block. A NOOP stub anchors the scan and stays behind only when flattening
// empties the block entirely, keeping the block label addressable.
func flattenBlock(block *eof.BasicBlock) *eof.BasicBlock {
	flat := eof.NewBasicBlock(block.Label)
	flat.Successors = append([]int{}, block.Successors...)
	flat.Offset = block.Offset
	flat.Append(eof.NewCodePoint(ops.NOOP, nil))
	for _, cp := range block.Code {
		last := flat.Code[len(flat.Code)-1].Op
		if (cp.Op.IsPush() && last == ops.POP) || (cp.Op == ops.POP && last.IsPush()) {
			flat.Remove(len(flat.Code) - 1)
		} else {
			flat.Append(cp)
		}
	}
	if len(flat.Code) > 1 {
		flat.Remove(0)
	}
	if len(flat.Code) == len(block.Code) {
		return block
	}
	return flat
}

// randomBytes fills n bytes from the strategy's deterministic source.
func randomBytes(rnd *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rnd.Read(b)
	return b
}
