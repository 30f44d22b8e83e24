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
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// roundTripVectors are real containers covering single and multiple code
// sections, data sections, nested containers and forward/backward jumps.
var roundTripVectors = []struct {
	name  string
	input string
}{
	{
		name: "simple",
		input: "ef0001010004020001001604000000008000026001e10006600a600255005f35" +
			"e1fff5600b60025500",
	},
	{
		name: "multiple_code",
		input: "ef00010100100200040005000600080002040001000080000101000001000100" +
			"03020300035fe300010050e3000250e43080e300035050e480e4ef",
	},
	{
		name: "data_section",
		input: "ef00010100140200050012000800070005000e04004000008000020000000200" +
			"0000020000000200000003e30001e30002e30003e30004600160005500610020" +
			"d0600155e4d10020600255e4d2600355e4602060206000d3600051600455e400" +
			"0100020003000400050006000700080009000a000b000c000d000e000f001000" +
			"1100120013001400150016001700180019001a001b001c001d001e001f0020",
	},
	{
		name: "simple_container",
		input: "ef0001010004020001000e030001003204000000008000046000600060006000" +
			"ec0060005500ef00010100040200010006030001001404000000008000026000" +
			"6000ee00ef00010100040200010001040000000080000000",
	},
	{
		name: "double_container",
		input: "ef0001010008020002000d000603000200320014040000000080000400800002" +
			"6000600060006000ec00e5000160006000ee01ef000101000402000100060300" +
			"010014040000000080000260006000ee00ef0001010004020001000104000000" +
			"0080000000ef00010100040200010001040000000080000000",
	},
	{
		name:  "rjump_positive_negative",
		input: "ef0001010004020001001104000000008000025fe10003e0000761201560015500e0fff6",
	},
	{
		name: "rjumpi_condition_backwards",
		input: "ef0001010004020001001604000000008000026001e10006600a600255005f35" +
			"e1fff5600b60025500",
	},
	{
		name:  "rjumpv_size_3",
		input: "ef0001010004020001001404000000008000026000e20200030000fff65b5b0061201560015500",
	},
}

func mustDecode(t *testing.T, input string) *Container {
	t.Helper()
	data, err := hex.DecodeString(input)
	require.NoError(t, err)
	c, err := Decode(data)
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	for _, tt := range roundTripVectors {
		t.Run(tt.name, func(t *testing.T) {
			c := mustDecode(t, tt.input)
			encoded := hex.EncodeToString(c.Encode())
			require.True(t, strings.HasPrefix(tt.input, encoded),
				"encoded %s is not a prefix of input %s", encoded, tt.input)
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	for _, tt := range roundTripVectors {
		t.Run(tt.name, func(t *testing.T) {
			c := mustDecode(t, tt.input)
			c.Reconcile()
			once := c.Encode()
			c.Reconcile()
			require.Equal(t, once, c.Encode())
		})
	}
}

// With no mutation in between, reconciliation must reproduce the container
// byte for byte: same offsets, same jump immediates, same max stack.
func TestReconcilePreservesEncoding(t *testing.T) {
	for _, name := range []string{"simple", "rjumpv_size_3", "rjump_positive_negative"} {
		for _, tt := range roundTripVectors {
			if tt.name != name {
				continue
			}
			t.Run(tt.name, func(t *testing.T) {
				c := mustDecode(t, tt.input)
				c.Reconcile()
				require.Equal(t, tt.input, hex.EncodeToString(c.Encode()))
			})
		}
	}
}

func TestNestedContainers(t *testing.T) {
	c := mustDecode(t, roundTripVectors[3].input) // simple_container
	require.Len(t, c.Subcontainers, 1)
	require.Len(t, c.Subcontainers[0].Subcontainers, 1)

	c = mustDecode(t, roundTripVectors[4].input) // double_container
	require.Len(t, c.Subcontainers, 2)
	require.Len(t, c.Subcontainers[0].Subcontainers, 1)
	require.Empty(t, c.Subcontainers[1].Subcontainers)
}

func TestOpcodeCount(t *testing.T) {
	c := mustDecode(t, roundTripVectors[0].input) // simple
	require.Equal(t, 13, c.OpcodeCount())
	c = mustDecode(t, roundTripVectors[7].input) // rjumpv_size_3
	require.Equal(t, 9, c.OpcodeCount())
}

func TestDataSection(t *testing.T) {
	c := mustDecode(t, roundTripVectors[2].input) // data_section
	require.Equal(t, 0x40, c.DataLen)
	require.Len(t, c.Data, 0x40)
	require.Len(t, c.Sections, 5)
}

// Trailing bytes beyond the declared data length are auxiliary data appended
// post-deployment; they must survive decode/encode untouched.
func TestAuxiliaryData(t *testing.T) {
	input, err := hex.DecodeString(roundTripVectors[0].input)
	require.NoError(t, err)
	withAux := append(append([]byte{}, input...), 0xde, 0xad, 0xbe, 0xef)

	c, err := Decode(withAux)
	require.NoError(t, err)
	require.Equal(t, 0, c.DataLen)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, c.Data)
	require.Equal(t, withAux, c.Encode())

	c.Reconcile()
	require.Equal(t, withAux, c.Encode())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"bad magic", "ef0101010004", ErrInvalidMagic},
		{"empty", "", ErrInvalidMagic},
		{"legacy code", "6001600255", ErrInvalidMagic},
		{"missing type header", "ef000102000400", ErrMissingTypeHeader},
		{"missing code header", "ef0001010004040000", ErrMissingCodeHeader},
		{"missing data header", "ef00010100040200010001050000", ErrMissingDataHeader},
		{"nonzero terminator", "ef00010100040200010001040000ff0080000000", ErrMissingTerminator},
		{"truncated header", "ef00010100", ErrUnexpectedEndOfInput},
		{"truncated code", "ef000101000402000100160400000000800002", ErrUnexpectedEndOfInput},
		// 0xef is not a valid instruction; here it sits inside code.
		{"undefined instruction", "ef000101000402000100010400000000800000ef", ErrUndefinedInstruction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := hex.DecodeString(tt.input)
			require.NoError(t, err)
			_, err = Decode(data)
			require.ErrorIs(t, err, tt.err)
		})
	}
}
