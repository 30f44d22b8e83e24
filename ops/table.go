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

package ops

// info collects the static attributes of one opcode. The stack counts model
// items actually consumed and produced; for CALLF the delta depends on the
// callee and is resolved by the container model instead.
type info struct {
	valid      bool
	immediates uint8
	variable   bool // RJUMPV: immediate size depends on the count byte
	popped     uint8
	pushed     uint8
	terminal   bool
}

var table [256]info

func op(code OpCode, popped, pushed uint8) *info {
	table[code] = info{valid: true, popped: popped, pushed: pushed}
	return &table[code]
}

func (i *info) imm(n uint8) *info { i.immediates = n; return i }

func (i *info) terminating() *info { i.terminal = true; return i }

func (i *info) variableImm(n uint8) *info {
	i.immediates = n
	i.variable = true
	return i
}

func init() {
	op(STOP, 0, 0).terminating()
	op(ADD, 2, 1)
	op(MUL, 2, 1)
	op(SUB, 2, 1)
	op(DIV, 2, 1)
	op(SDIV, 2, 1)
	op(MOD, 2, 1)
	op(SMOD, 2, 1)
	op(ADDMOD, 3, 1)
	op(MULMOD, 3, 1)
	op(EXP, 2, 1)
	op(SIGNEXTEND, 2, 1)

	op(LT, 2, 1)
	op(GT, 2, 1)
	op(SLT, 2, 1)
	op(SGT, 2, 1)
	op(EQ, 2, 1)
	op(ISZERO, 1, 1)
	op(AND, 2, 1)
	op(OR, 2, 1)
	op(XOR, 2, 1)
	op(NOT, 1, 1)
	op(BYTE, 2, 1)
	op(SHL, 2, 1)
	op(SHR, 2, 1)
	op(SAR, 2, 1)

	op(KECCAK256, 2, 1)

	op(ADDRESS, 0, 1)
	op(BALANCE, 1, 1)
	op(ORIGIN, 0, 1)
	op(CALLER, 0, 1)
	op(CALLVALUE, 0, 1)
	op(CALLDATALOAD, 1, 1)
	op(CALLDATASIZE, 0, 1)
	op(CALLDATACOPY, 3, 0)
	op(GASPRICE, 0, 1)
	op(RETURNDATASIZE, 0, 1)
	op(RETURNDATACOPY, 3, 0)

	op(BLOCKHASH, 1, 1)
	op(COINBASE, 0, 1)
	op(TIMESTAMP, 0, 1)
	op(NUMBER, 0, 1)
	op(PREVRANDAO, 0, 1)
	op(GASLIMIT, 0, 1)
	op(CHAINID, 0, 1)
	op(SELFBALANCE, 0, 1)
	op(BASEFEE, 0, 1)
	op(BLOBHASH, 1, 1)
	op(BLOBBASEFEE, 0, 1)

	op(POP, 1, 0)
	op(MLOAD, 1, 1)
	op(MSTORE, 2, 0)
	op(MSTORE8, 2, 0)
	op(SLOAD, 1, 1)
	op(SSTORE, 2, 0)
	op(MSIZE, 0, 1)
	op(NOOP, 0, 0)
	op(TLOAD, 1, 1)
	op(TSTORE, 2, 0)
	op(MCOPY, 3, 0)

	op(PUSH0, 0, 1)
	for i := uint8(1); i <= 32; i++ {
		op(PUSH0+OpCode(i), 0, 1).imm(i)
	}
	for i := uint8(1); i <= 16; i++ {
		op(DUP1+OpCode(i-1), i, i+1)
		op(SWAP1+OpCode(i-1), i+1, i+1)
	}
	for i := uint8(0); i <= 4; i++ {
		op(LOG0+OpCode(i), 2+i, 0)
	}

	op(DATALOAD, 1, 1)
	op(DATALOADN, 0, 1).imm(2)
	op(DATASIZE, 0, 1)
	op(DATACOPY, 3, 0)

	op(RJUMP, 0, 0).imm(2).terminating()
	op(RJUMPI, 1, 0).imm(2)
	op(RJUMPV, 1, 0).variableImm(3)
	op(CALLF, 0, 0).imm(2)
	op(RETF, 0, 0).terminating()
	op(JUMPF, 0, 0).imm(2).terminating()
	op(DUPN, 0, 1).imm(1)
	op(SWAPN, 0, 0).imm(1)
	op(EXCHANGE, 0, 0).imm(1)
	op(EOFCREATE, 4, 1).imm(1)
	op(RETURNCONTRACT, 2, 0).imm(1).terminating()

	op(RETURN, 2, 0).terminating()
	op(RETURNDATALOAD, 1, 1)
	op(EXTCALL, 4, 1)
	op(EXTDELEGATECALL, 3, 1)
	op(EXTSTATICCALL, 3, 1)
	op(REVERT, 2, 0).terminating()
	op(INVALID, 0, 0).terminating()
}

// Valid reports whether the opcode belongs to the EOF instruction set.
func Valid(op OpCode) bool {
	return table[op].valid
}

// Immediates returns the number of immediate bytes an opcode carries in code.
// For RJUMPV this is the minimum (count byte plus one jump entry); the real
// size follows from the count byte, see HasVariableImmediates.
func Immediates(op OpCode) int {
	return int(table[op].immediates)
}

// HasVariableImmediates reports whether the immediate size is determined by
// the first immediate byte (only RJUMPV).
func HasVariableImmediates(op OpCode) bool {
	return table[op].variable
}

// Terminating reports whether control never falls through the opcode.
func Terminating(op OpCode) bool {
	return table[op].terminal
}

// StackPopped returns the number of items the opcode consumes.
func StackPopped(op OpCode) int {
	return int(table[op].popped)
}

// StackPushed returns the number of items the opcode produces.
func StackPushed(op OpCode) int {
	return int(table[op].pushed)
}

// StackDelta returns pushed minus popped. For CALLF the caller must resolve
// the delta against the callee section instead.
func StackDelta(op OpCode) int {
	return int(table[op].pushed) - int(table[op].popped)
}

// MinStack returns the minimum incoming stack depth at which the opcode (with
// the given immediate) is legal. For most opcodes this equals the popped
// count; DUPN, SWAPN and EXCHANGE reach deeper than they pop, with the depth
// encoded in the immediate.
func MinStack(op OpCode, immediate []byte) int {
	switch op {
	case DUPN:
		return int(firstByte(immediate)) + 1
	case SWAPN:
		return int(firstByte(immediate)) + 2
	case EXCHANGE:
		imm := firstByte(immediate)
		n := int(imm>>4) + 1
		m := int(imm&0x0f) + 1
		return n + m + 1
	default:
		return int(table[op].popped)
	}
}

// PushFor returns the smallest push opcode whose immediate is exactly size
// bytes. Size must be in [0, 32].
func PushFor(size int) OpCode {
	return PUSH0 + OpCode(size)
}

// PushSize returns the immediate width of a push opcode.
func PushSize(op OpCode) int {
	return int(op - PUSH0)
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
