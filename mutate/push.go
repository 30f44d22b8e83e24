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
	"fmt"
	"math/rand"

	"github.com/holiman/uint256"

	"github.com/ethereum/go-eoffuzz/eof"
	"github.com/ethereum/go-eoffuzz/ops"
)

// minimizePush re-sizes a push opcode to the smallest variant that still fits
// the significant bytes of its immediate. Non-push code points pass through
// untouched.
func minimizePush(cp *eof.CodePoint) (*eof.CodePoint, error) {
	if !cp.Op.IsPush() {
		return cp, nil
	}
	immediate := cp.Immediate
	for len(immediate) > 0 && immediate[0] == 0 {
		immediate = immediate[1:]
	}
	if len(immediate) > 32 {
		return nil, fmt.Errorf("push immediate too large: %d bytes", len(immediate))
	}
	if newOp := ops.PushFor(len(immediate)); newOp != cp.Op {
		return eof.NewCodePoint(newOp, immediate), nil
	}
	// Same opcode, but the callers may have attached a wider immediate than
	// the opcode encodes; keep only the significant bytes.
	cp.Immediate = immediate
	return cp, nil
}

// PushPop inserts a PUSH0/POP pair at a random point: a stack-neutral no-op
// pair that perturbs code layout without touching stack accounting.
type PushPop struct{}

func (PushPop) Name() string  { return "push/pop" }
func (PushPop) Priority() int { return 1 }

func (PushPop) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc := randomLocation(c, rnd, false)
	block := c.Sections[loc.section].Blocks[loc.block]

	block.Insert(loc.pos, eof.NewCodePoint(ops.POP, nil))
	block.Insert(loc.pos, eof.NewCodePoint(ops.PUSH0, nil))

	return applied("add PUSH0/POP section %d block %d pos %d", loc.section, loc.block, loc.pos), nil
}

// ReplacePushWithAddress rewrites the immediate of the nearest push with one
// of the fixture's known account addresses.
type ReplacePushWithAddress struct{}

func (ReplacePushWithAddress) Name() string  { return "replace-push-address" }
func (ReplacePushWithAddress) Priority() int { return 1 }

func (ReplacePushWithAddress) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc, ok := findOpcode(c, rnd, ops.OpCode.IsPush)
	if !ok {
		return skipped("no push found"), nil
	}
	if len(ctx.Addresses) == 0 {
		return skipped("no addresses in context"), nil
	}
	address := ctx.Addresses[rnd.Intn(len(ctx.Addresses))]

	block := c.Sections[loc.section].Blocks[loc.block]
	cp := block.Code[loc.pos]
	cp.Immediate = address.Bytes()
	minimized, err := minimizePush(cp)
	if err != nil {
		return Result{}, err
	}
	block.Code[loc.pos] = minimized

	return applied("set address section %d block %d pos %d", loc.section, loc.block, loc.pos), nil
}

// pushSizeDistribution weights the byte length of replacement push values,
// favoring short immediates.
var pushSizeDistribution = buildPushSizeDistribution()

func buildPushSizeDistribution() []int {
	sizes := []int{1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 4, 4, 4, 4, 8, 8, 8, 16, 16, 32}
	for i := 0; i < 32; i++ {
		sizes = append(sizes, i)
	}
	return sizes
}

// ReplacePushWithRandom rewrites the immediate of the nearest push with a
// random value of weighted-random size.
type ReplacePushWithRandom struct{}

func (ReplacePushWithRandom) Name() string  { return "replace-push-random" }
func (ReplacePushWithRandom) Priority() int { return 10 }

func (ReplacePushWithRandom) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc, ok := findOpcode(c, rnd, ops.OpCode.IsPush)
	if !ok {
		return skipped("no push found"), nil
	}
	size := pushSizeDistribution[rnd.Intn(len(pushSizeDistribution))]

	block := c.Sections[loc.section].Blocks[loc.block]
	cp := block.Code[loc.pos]
	cp.Immediate = randomBytes(rnd, size)
	minimized, err := minimizePush(cp)
	if err != nil {
		return Result{}, err
	}
	block.Code[loc.pos] = minimized

	return applied("set push random size %d section %d block %d pos %d",
		size, loc.section, loc.block, loc.pos), nil
}

// magicValues are boundary constants prone to breaking implementations:
// powers of two, their neighbors, and other values with special handling in
// various languages or parts of the protocol.
var magicValues = buildMagicValues()

func buildMagicValues() [][]byte {
	var values []*uint256.Int
	for _, exp := range []uint{4, 7, 8, 10, 15, 16, 31, 32, 53, 63, 64, 256} {
		v := new(uint256.Int).Lsh(uint256.NewInt(1), exp)
		values = append(values, new(uint256.Int).SubUint64(v, 1))
	}
	for _, exp := range []uint{4, 7, 8, 10, 15, 16, 31, 32, 53, 63, 64} {
		values = append(values, new(uint256.Int).Lsh(uint256.NewInt(1), exp))
	}
	values = append(values, uint256.NewInt(17), uint256.NewInt(1025))

	out := make([][]byte, len(values))
	for i, v := range values {
		b := v.Bytes32()
		out[i] = b[:]
	}
	return out
}

// ReplacePushWithMagic rewrites the immediate of the nearest push with a
// curated magic value.
type ReplacePushWithMagic struct{}

func (ReplacePushWithMagic) Name() string  { return "replace-push-magic" }
func (ReplacePushWithMagic) Priority() int { return 10 }

func (ReplacePushWithMagic) Mutate(c *eof.Container, ctx *Context, rnd *rand.Rand) (Result, error) {
	loc, ok := findOpcode(c, rnd, ops.OpCode.IsPush)
	if !ok {
		return skipped("no push found"), nil
	}
	value := magicValues[rnd.Intn(len(magicValues))]

	block := c.Sections[loc.section].Blocks[loc.block]
	cp := block.Code[loc.pos]
	cp.Immediate = append([]byte{}, value...)
	minimized, err := minimizePush(cp)
	if err != nil {
		return Result{}, err
	}
	block.Code[loc.pos] = minimized

	return applied("set push magic value section %d block %d pos %d",
		loc.section, loc.block, loc.pos), nil
}
