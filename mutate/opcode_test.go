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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-eoffuzz/eof"
	"github.com/ethereum/go-eoffuzz/ops"
)

func TestSimpleOpcodes(t *testing.T) {
	set := make(map[ops.OpCode]bool, len(simpleOpcodes))
	for _, op := range simpleOpcodes {
		set[op] = true
		require.True(t, ops.Valid(op), "%v", op)
		require.False(t, op.IsPush(), "%v", op)
		require.False(t, ops.Terminating(op), "%v", op)
		require.Equal(t, 0, ops.Immediates(op), "%v", op)
	}
	for _, op := range []ops.OpCode{ops.ADD, ops.KECCAK256, ops.SSTORE, ops.DUP16, ops.SWAP1, ops.NOOP} {
		require.True(t, set[op], "%v missing", op)
	}
	for _, op := range []ops.OpCode{ops.POP, ops.RJUMP, ops.CALLF, ops.DATALOAD, ops.EXTCALL, ops.PUSH0} {
		require.False(t, set[op], "%v must be excluded", op)
	}
}

// A SWAPN that reaches five deep inserted at the head of an empty stack gets
// five pushes before it and five pops after. The trailing pops then cancel
// against the block's own pushes in the peephole pass, leaving three.
func TestInsertBalancedDeepStackOp(t *testing.T) {
	c := mustContainer(t, twoBlockHex)

	insertBalanced(c, location{section: 0, block: 1, pos: 0},
		eof.NewCodePoint(ops.SWAPN, []byte{0x03}))

	var got []ops.OpCode
	for _, cp := range c.Sections[0].Blocks[1].Code {
		got = append(got, cp.Op)
	}
	require.Equal(t, []ops.OpCode{
		ops.PUSH0, ops.PUSH0, ops.PUSH0, ops.PUSH0, ops.PUSH0,
		ops.SWAPN,
		ops.POP, ops.POP, ops.POP,
		ops.SSTORE, ops.STOP,
	}, got)

	c.Reconcile()
	require.Equal(t, 5, c.Sections[0].MaxStack)
	requireRedecodable(t, c)
}

func TestInsertSimpleBalanced(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		c := mustContainer(t, fourBlockHex)
		res, err := InsertSimpleBalanced{}.Mutate(c, &Context{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, res.Applied, "seed %d", seed)
		requireRedecodable(t, c)
	}
}

func TestInsertStackOpBalanced(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		c := mustContainer(t, fourBlockHex)
		res, err := InsertStackOpBalanced{}.Mutate(c, &Context{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, res.Applied, "seed %d", seed)
		requireRedecodable(t, c)
	}
}

func TestDeleteBalancedSkipsLoneTerminator(t *testing.T) {
	// A single STOP: every pick lands on it, and removing the block's only
	// terminator is always refused.
	c := mustContainer(t, "ef00010100040200010001040000000080000000")
	res, err := DeleteBalanced{}.Mutate(c, &Context{}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.False(t, res.Applied)
}

func TestDeleteBalanced(t *testing.T) {
	seen := 0
	for seed := int64(0); seed < 50; seed++ {
		c := mustContainer(t, fourBlockHex)
		res, err := DeleteBalanced{}.Mutate(c, &Context{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		if !res.Applied {
			continue
		}
		seen++
		requireRedecodable(t, c)
	}
	require.NotZero(t, seen, "no seed produced an applied deletion")
}

func TestInsertDataOpGrowsData(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		c := mustContainer(t, fourBlockHex)
		require.Zero(t, c.DataLen)

		res, err := InsertDataOp{}.Mutate(c, &Context{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, res.Applied, "seed %d", seed)
		require.Positive(t, c.DataLen, "seed %d", seed)
		require.Len(t, c.Data, c.DataLen)

		again := requireRedecodable(t, c)
		require.Equal(t, c.DataLen, again.DataLen)

		var dataOp bool
		for _, op := range opcodeList(again) {
			switch op {
			case ops.DATALOAD, ops.DATALOADN, ops.DATASIZE, ops.DATACOPY:
				dataOp = true
			}
		}
		require.True(t, dataOp, "seed %d", seed)
	}
}
