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
	"bytes"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-eoffuzz/eof"
	"github.com/ethereum/go-eoffuzz/ops"
)

func TestMinimizePush(t *testing.T) {
	tests := []struct {
		name      string
		op        ops.OpCode
		immediate []byte
		wantOp    ops.OpCode
		wantImm   []byte
	}{
		{"leading zero", ops.PUSH2, []byte{0x00, 0x01}, ops.PUSH1, []byte{0x01}},
		{"all zero", ops.PUSH1, []byte{0x00}, ops.PUSH0, []byte{}},
		{"already minimal", ops.PUSH1, []byte{0x42}, ops.PUSH1, []byte{0x42}},
		{"wide immediate same opcode", ops.PUSH1, append(make([]byte, 31), 0x0f), ops.PUSH1, []byte{0x0f}},
		{"wide zero", ops.PUSH32, make([]byte, 32), ops.PUSH0, []byte{}},
		{
			"padded address", ops.PUSH32,
			append(make([]byte, 12), common.HexToAddress("0xc0de00000000000000000000000000000000c0de").Bytes()...),
			ops.PUSH20,
			common.HexToAddress("0xc0de00000000000000000000000000000000c0de").Bytes(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := minimizePush(eof.NewCodePoint(tt.op, tt.immediate))
			require.NoError(t, err)
			require.Equal(t, tt.wantOp, got.Op)
			require.Equal(t, len(tt.wantImm), len(got.Immediate))
			require.True(t, bytes.Equal(tt.wantImm, got.Immediate))
		})
	}
}

func TestMinimizePushPassthrough(t *testing.T) {
	cp := eof.NewCodePoint(ops.ADD, nil)
	got, err := minimizePush(cp)
	require.NoError(t, err)
	require.Same(t, cp, got)
}

func TestMinimizePushOversized(t *testing.T) {
	immediate := make([]byte, 33)
	immediate[0] = 0x01
	_, err := minimizePush(eof.NewCodePoint(ops.PUSH32, immediate))
	require.Error(t, err)
}

func TestPushPop(t *testing.T) {
	c := mustContainer(t, twoBlockHex)
	before := c.OpcodeCount()

	res, err := PushPop{}.Mutate(c, &Context{}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, before+2, c.OpcodeCount())

	again := requireRedecodable(t, c)
	require.Equal(t, c.Sections[0].MaxStack, again.Sections[0].MaxStack)
}

/// A PUSH0/POP pair at the head of every block: after reconciliation the
// container must re-decode with the same block count and successor shape.
func TestPushPopEveryBlock(t *testing.T) {
	c := mustContainer(t, fourBlockHex)
	var shape [][]int
	for _, s := range c.Sections {
		for _, b := range s.Blocks {
			shape = append(shape, append([]int{}, b.Successors...))
			b.Insert(0, eof.NewCodePoint(ops.POP, nil))
			b.Insert(0, eof.NewCodePoint(ops.PUSH0, nil))
		}
	}

	again := requireRedecodable(t, c)
	var got [][]int
	for _, s := range again.Sections {
		for _, b := range s.Blocks {
			got = append(got, b.Successors)
		}
	}
	require.Len(t, got, len(shape))
	for i := range shape {
		require.Len(t, got[i], len(shape[i]), "block %d", i)
	}
}

func TestReplacePushWithAddress(t *testing.T) {
	address := common.HexToAddress("0xc0ffee0000000000000000000000000000000001")
	c := mustContainer(t, fourBlockHex)

	res, err := ReplacePushWithAddress{}.Mutate(c, &Context{Addresses: []common.Address{address}},
		rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.True(t, res.Applied)

	var found bool
	for _, s := range c.Sections {
		for _, b := range s.Blocks {
			for _, cp := range b.Code {
				if cp.Op == ops.PUSH20 && bytes.Equal(cp.Immediate, address.Bytes()) {
					found = true
				}
			}
		}
	}
	require.True(t, found, "no push carries the address")
	requireRedecodable(t, c)
}

func TestReplacePushWithAddressNoContext(t *testing.T) {
	c := mustContainer(t, fourBlockHex)
	res, err := ReplacePushWithAddress{}.Mutate(c, &Context{}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.False(t, res.Applied)
}

func TestReplacePushWithRandom(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		c := mustContainer(t, fourBlockHex)
		pushes := 0
		for _, op := range opcodeList(c) {
			if op.IsPush() {
				pushes++
			}
		}

		res, err := ReplacePushWithRandom{}.Mutate(c, &Context{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, res.Applied)

		after := 0
		for _, op := range opcodeList(c) {
			if op.IsPush() {
				after++
			}
		}
		require.Equal(t, pushes, after)
		requireRedecodable(t, c)
	}
}

func TestReplacePushWithMagic(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		c := mustContainer(t, fourBlockHex)
		res, err := ReplacePushWithMagic{}.Mutate(c, &Context{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, res.Applied)
		requireRedecodable(t, c)
	}
}

func TestMagicValues(t *testing.T) {
	require.Len(t, magicValues, 25)
	for _, v := range magicValues {
		require.Len(t, v, 32)
	}
	// 2^256-1 wraps to the all-ones word.
	require.Equal(t, bytes.Repeat([]byte{0xff}, 32), magicValues[11])
	// The last entry is one past the stack limit.
	last := magicValues[len(magicValues)-1]
	require.Equal(t, byte(0x04), last[30])
	require.Equal(t, byte(0x01), last[31])
}
