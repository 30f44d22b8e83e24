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

// Package ops defines the EOF instruction set and the per-opcode attributes
// (immediate sizes, stack effects, terminators) that the container model and
// the mutation strategies consume. The tables are fork-agnostic and cover the
// Prague EOF-valid opcode set; validity of a whole container is decided
// elsewhere.
package ops

import "fmt"

// OpCode is a single EVM opcode byte.
type OpCode byte

// 0x0 range - arithmetic ops.
const (
	STOP OpCode = iota
	ADD
	MUL
	SUB
	DIV
	SDIV
	MOD
	SMOD
	ADDMOD
	MULMOD
	EXP
	SIGNEXTEND
)

// 0x10 range - comparison ops.
const (
	LT OpCode = iota + 0x10
	GT
	SLT
	SGT
	EQ
	ISZERO
	AND
	OR
	XOR
	NOT
	BYTE
	SHL
	SHR
	SAR
)

// 0x20 range - crypto.
const (
	KECCAK256 OpCode = 0x20
)

// 0x30 range - closure state.
const (
	ADDRESS OpCode = iota + 0x30
	BALANCE
	ORIGIN
	CALLER
	CALLVALUE
	CALLDATALOAD
	CALLDATASIZE
	CALLDATACOPY
)

const (
	GASPRICE       OpCode = 0x3a
	RETURNDATASIZE OpCode = 0x3d
	RETURNDATACOPY OpCode = 0x3e
)

// 0x40 range - block operations.
const (
	BLOCKHASH OpCode = iota + 0x40
	COINBASE
	TIMESTAMP
	NUMBER
	PREVRANDAO
	GASLIMIT
	CHAINID
	SELFBALANCE
	BASEFEE
	BLOBHASH
	BLOBBASEFEE
)

// 0x50 range - storage and execution.
const (
	POP     OpCode = 0x50
	MLOAD   OpCode = 0x51
	MSTORE  OpCode = 0x52
	MSTORE8 OpCode = 0x53
	SLOAD   OpCode = 0x54
	SSTORE  OpCode = 0x55
	MSIZE   OpCode = 0x59
	// NOOP occupies the legacy JUMPDEST slot. In EOF it has no semantics
	// beyond keeping a code offset addressable.
	NOOP   OpCode = 0x5b
	TLOAD  OpCode = 0x5c
	TSTORE OpCode = 0x5d
	MCOPY  OpCode = 0x5e
	PUSH0  OpCode = 0x5f
)

// 0x60 range - pushes.
const (
	PUSH1 OpCode = iota + 0x60
	PUSH2
	PUSH3
	PUSH4
	PUSH5
	PUSH6
	PUSH7
	PUSH8
	PUSH9
	PUSH10
	PUSH11
	PUSH12
	PUSH13
	PUSH14
	PUSH15
	PUSH16
	PUSH17
	PUSH18
	PUSH19
	PUSH20
	PUSH21
	PUSH22
	PUSH23
	PUSH24
	PUSH25
	PUSH26
	PUSH27
	PUSH28
	PUSH29
	PUSH30
	PUSH31
	PUSH32
)

// 0x80 range - dups.
const (
	DUP1 OpCode = iota + 0x80
	DUP2
	DUP3
	DUP4
	DUP5
	DUP6
	DUP7
	DUP8
	DUP9
	DUP10
	DUP11
	DUP12
	DUP13
	DUP14
	DUP15
	DUP16
)

// 0x90 range - swaps.
const (
	SWAP1 OpCode = iota + 0x90
	SWAP2
	SWAP3
	SWAP4
	SWAP5
	SWAP6
	SWAP7
	SWAP8
	SWAP9
	SWAP10
	SWAP11
	SWAP12
	SWAP13
	SWAP14
	SWAP15
	SWAP16
)

// 0xa0 range - logging ops.
const (
	LOG0 OpCode = iota + 0xa0
	LOG1
	LOG2
	LOG3
	LOG4
)

// 0xd0 range - EOF data section access.
const (
	DATALOAD  OpCode = 0xd0
	DATALOADN OpCode = 0xd1
	DATASIZE  OpCode = 0xd2
	DATACOPY  OpCode = 0xd3
)

// 0xe0 range - EOF control flow and stack ops.
const (
	RJUMP    OpCode = 0xe0
	RJUMPI   OpCode = 0xe1
	RJUMPV   OpCode = 0xe2
	CALLF    OpCode = 0xe3
	RETF     OpCode = 0xe4
	JUMPF    OpCode = 0xe5
	DUPN     OpCode = 0xe6
	SWAPN    OpCode = 0xe7
	EXCHANGE OpCode = 0xe8
)

const (
	EOFCREATE      OpCode = 0xec
	RETURNCONTRACT OpCode = 0xee
)

// 0xf0 range - calls and halts.
const (
	RETURN          OpCode = 0xf3
	RETURNDATALOAD  OpCode = 0xf7
	EXTCALL         OpCode = 0xf8
	EXTDELEGATECALL OpCode = 0xf9
	EXTSTATICCALL   OpCode = 0xfb
	REVERT          OpCode = 0xfd
	INVALID         OpCode = 0xfe
)

var opCodeToString = [256]string{
	STOP:            "STOP",
	ADD:             "ADD",
	MUL:             "MUL",
	SUB:             "SUB",
	DIV:             "DIV",
	SDIV:            "SDIV",
	MOD:             "MOD",
	SMOD:            "SMOD",
	ADDMOD:          "ADDMOD",
	MULMOD:          "MULMOD",
	EXP:             "EXP",
	SIGNEXTEND:      "SIGNEXTEND",
	LT:              "LT",
	GT:              "GT",
	SLT:             "SLT",
	SGT:             "SGT",
	EQ:              "EQ",
	ISZERO:          "ISZERO",
	AND:             "AND",
	OR:              "OR",
	XOR:             "XOR",
	NOT:             "NOT",
	BYTE:            "BYTE",
	SHL:             "SHL",
	SHR:             "SHR",
	SAR:             "SAR",
	KECCAK256:       "KECCAK256",
	ADDRESS:         "ADDRESS",
	BALANCE:         "BALANCE",
	ORIGIN:          "ORIGIN",
	CALLER:          "CALLER",
	CALLVALUE:       "CALLVALUE",
	CALLDATALOAD:    "CALLDATALOAD",
	CALLDATASIZE:    "CALLDATASIZE",
	CALLDATACOPY:    "CALLDATACOPY",
	GASPRICE:        "GASPRICE",
	RETURNDATASIZE:  "RETURNDATASIZE",
	RETURNDATACOPY:  "RETURNDATACOPY",
	BLOCKHASH:       "BLOCKHASH",
	COINBASE:        "COINBASE",
	TIMESTAMP:       "TIMESTAMP",
	NUMBER:          "NUMBER",
	PREVRANDAO:      "PREVRANDAO",
	GASLIMIT:        "GASLIMIT",
	CHAINID:         "CHAINID",
	SELFBALANCE:     "SELFBALANCE",
	BASEFEE:         "BASEFEE",
	BLOBHASH:        "BLOBHASH",
	BLOBBASEFEE:     "BLOBBASEFEE",
	POP:             "POP",
	MLOAD:           "MLOAD",
	MSTORE:          "MSTORE",
	MSTORE8:         "MSTORE8",
	SLOAD:           "SLOAD",
	SSTORE:          "SSTORE",
	MSIZE:           "MSIZE",
	NOOP:            "NOOP",
	TLOAD:           "TLOAD",
	TSTORE:          "TSTORE",
	MCOPY:           "MCOPY",
	PUSH0:           "PUSH0",
	PUSH1:           "PUSH1",
	PUSH2:           "PUSH2",
	PUSH3:           "PUSH3",
	PUSH4:           "PUSH4",
	PUSH5:           "PUSH5",
	PUSH6:           "PUSH6",
	PUSH7:           "PUSH7",
	PUSH8:           "PUSH8",
	PUSH9:           "PUSH9",
	PUSH10:          "PUSH10",
	PUSH11:          "PUSH11",
	PUSH12:          "PUSH12",
	PUSH13:          "PUSH13",
	PUSH14:          "PUSH14",
	PUSH15:          "PUSH15",
	PUSH16:          "PUSH16",
	PUSH17:          "PUSH17",
	PUSH18:          "PUSH18",
	PUSH19:          "PUSH19",
	PUSH20:          "PUSH20",
	PUSH21:          "PUSH21",
	PUSH22:          "PUSH22",
	PUSH23:          "PUSH23",
	PUSH24:          "PUSH24",
	PUSH25:          "PUSH25",
	PUSH26:          "PUSH26",
	PUSH27:          "PUSH27",
	PUSH28:          "PUSH28",
	PUSH29:          "PUSH29",
	PUSH30:          "PUSH30",
	PUSH31:          "PUSH31",
	PUSH32:          "PUSH32",
	DUP1:            "DUP1",
	DUP2:            "DUP2",
	DUP3:            "DUP3",
	DUP4:            "DUP4",
	DUP5:            "DUP5",
	DUP6:            "DUP6",
	DUP7:            "DUP7",
	DUP8:            "DUP8",
	DUP9:            "DUP9",
	DUP10:           "DUP10",
	DUP11:           "DUP11",
	DUP12:           "DUP12",
	DUP13:           "DUP13",
	DUP14:           "DUP14",
	DUP15:           "DUP15",
	DUP16:           "DUP16",
	SWAP1:           "SWAP1",
	SWAP2:           "SWAP2",
	SWAP3:           "SWAP3",
	SWAP4:           "SWAP4",
	SWAP5:           "SWAP5",
	SWAP6:           "SWAP6",
	SWAP7:           "SWAP7",
	SWAP8:           "SWAP8",
	SWAP9:           "SWAP9",
	SWAP10:          "SWAP10",
	SWAP11:          "SWAP11",
	SWAP12:          "SWAP12",
	SWAP13:          "SWAP13",
	SWAP14:          "SWAP14",
	SWAP15:          "SWAP15",
	SWAP16:          "SWAP16",
	LOG0:            "LOG0",
	LOG1:            "LOG1",
	LOG2:            "LOG2",
	LOG3:            "LOG3",
	LOG4:            "LOG4",
	DATALOAD:        "DATALOAD",
	DATALOADN:       "DATALOADN",
	DATASIZE:        "DATASIZE",
	DATACOPY:        "DATACOPY",
	RJUMP:           "RJUMP",
	RJUMPI:          "RJUMPI",
	RJUMPV:          "RJUMPV",
	CALLF:           "CALLF",
	RETF:            "RETF",
	JUMPF:           "JUMPF",
	DUPN:            "DUPN",
	SWAPN:           "SWAPN",
	EXCHANGE:        "EXCHANGE",
	EOFCREATE:       "EOFCREATE",
	RETURNCONTRACT:  "RETURNCONTRACT",
	RETURN:          "RETURN",
	RETURNDATALOAD:  "RETURNDATALOAD",
	EXTCALL:         "EXTCALL",
	EXTDELEGATECALL: "EXTDELEGATECALL",
	EXTSTATICCALL:   "EXTSTATICCALL",
	REVERT:          "REVERT",
	INVALID:         "INVALID",
}

func (op OpCode) String() string {
	if s := opCodeToString[op]; s != "" {
		return s
	}
	return fmt.Sprintf("opcode %#x not defined", int(op))
}

// IsPush reports whether op is PUSH0..PUSH32.
func (op OpCode) IsPush() bool {
	return PUSH0 <= op && op <= PUSH32
}
