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
	"bytes"
	"fmt"
)

// Header section kind markers, in the order they must appear.
const (
	kindTypes     = 1
	kindCode      = 2
	kindContainer = 3
	kindData      = 4
)

var magic = []byte{0xef, 0x00, 0x01}

// Container is an EOF container in basic-block form: code sections, nested
// sub-containers and the trailing data segment. DataLen is the declared data
// size; Data may legitimately be longer, the excess being auxiliary data
// appended post-deployment that must round-trip verbatim.
type Container struct {
	Sections      []*CodeSection
	Subcontainers []*Container
	Data          []byte
	DataLen       int
}

// Decode parses an EOF container from its binary form, building the basic
// block graph of every code section and recursively decoding nested
// containers.
func Decode(data []byte) (*Container, error) {
	if len(data) < len(magic) || !bytes.HasPrefix(data, magic) {
		return nil, ErrInvalidMagic
	}
	// The types-section size is implied by the code-size list length, so the
	// value itself is not needed.
	kind, _, index, err := readHeader(data, len(magic))
	if err != nil {
		return nil, err
	}
	if kind != kindTypes {
		return nil, ErrMissingTypeHeader
	}

	kind, codeSizes, index, err := readMultiHeader(data, index)
	if err != nil {
		return nil, err
	}
	if kind != kindCode {
		return nil, ErrMissingCodeHeader
	}

	var containerSizes []int
	if index < len(data) && data[index] == kindContainer {
		_, containerSizes, index, err = readMultiHeader(data, index)
		if err != nil {
			return nil, err
		}
	}

	kind, dataSize, index, err := readHeader(data, index)
	if err != nil {
		return nil, err
	}
	if kind != kindData {
		return nil, ErrMissingDataHeader
	}
	if index >= len(data) || data[index] != 0 {
		return nil, ErrMissingTerminator
	}
	index++

	c := &Container{DataLen: dataSize}

	// Fixed-width type data array, one entry per code section.
	if index+4*len(codeSizes) > len(data) {
		return nil, fmt.Errorf("%w: truncated type data", ErrUnexpectedEndOfInput)
	}
	for i := range codeSizes {
		base := index + 4*i
		c.Sections = append(c.Sections, NewCodeSection(
			int(data[base]),
			int(data[base+1]),
			int(data[base+2])<<8|int(data[base+3]),
		))
	}
	index += 4 * len(codeSizes)

	for i, size := range codeSizes {
		if index+size > len(data) {
			return nil, fmt.Errorf("%w: truncated code section %d", ErrUnexpectedEndOfInput, i)
		}
		if err := c.Sections[i].fillBlocks(data[index:index+size], c); err != nil {
			return nil, err
		}
		index += size
	}
	for i, size := range containerSizes {
		if index+size > len(data) {
			return nil, fmt.Errorf("%w: truncated subcontainer %d", ErrUnexpectedEndOfInput, i)
		}
		sub, err := Decode(data[index : index+size])
		if err != nil {
			return nil, err
		}
		c.Subcontainers = append(c.Subcontainers, sub)
		index += size
	}
	c.Data = append([]byte{}, data[index:]...)
	return c, nil
}

// Encode serializes the container. It is the structural inverse of Decode
// and never fails on a consistent in-memory container. The declared DataLen
// is written to the header even when the data segment carries more bytes.
func (c *Container) Encode() []byte {
	sections := make([][]byte, len(c.Sections))
	for i, s := range c.Sections {
		sections[i] = s.Bytecode()
	}
	subs := make([][]byte, len(c.Subcontainers))
	for i, sub := range c.Subcontainers {
		subs[i] = sub.Encode()
	}

	var out bytes.Buffer
	out.Write(magic)

	out.WriteByte(kindTypes)
	writeUint16(&out, 4*len(sections))

	out.WriteByte(kindCode)
	writeUint16(&out, len(sections))
	for _, code := range sections {
		writeUint16(&out, len(code))
	}

	if len(subs) > 0 {
		out.WriteByte(kindContainer)
		writeUint16(&out, len(subs))
		for _, sub := range subs {
			writeUint16(&out, len(sub))
		}
	}

	out.WriteByte(kindData)
	writeUint16(&out, c.DataLen)
	out.WriteByte(0)

	for _, s := range c.Sections {
		out.Write(s.typeData())
	}
	for _, code := range sections {
		out.Write(code)
	}
	for _, sub := range subs {
		out.Write(sub)
	}
	out.Write(c.Data)
	return out.Bytes()
}

// Reconcile re-derives block offsets, jump immediates, stack intervals and
// section max-stack values for every code section. It must be called after
// any mutation (or batch of mutations) and before Encode; calling it again
// without intervening mutation changes nothing.
func (c *Container) Reconcile() {
	for _, s := range c.Sections {
		s.reconcile(c.Sections)
	}
}

// StackDelta resolves the net stack effect of a code point against this
// container's sections: pushed minus popped for ordinary opcodes, the
// callee's outputs minus inputs for CALLF.
func (c *Container) StackDelta(cp *CodePoint) int {
	return sectionStackDelta(c.Sections, cp)
}

func (c *Container) String() string {
	var sb bytes.Buffer
	sb.WriteString("{\n code sections: [\n")
	for _, s := range c.Sections {
		fmt.Fprintf(&sb, "  %s\n", s)
	}
	sb.WriteString(" ],\n containers: [\n")
	for _, sub := range c.Subcontainers {
		fmt.Fprintf(&sb, "  %s\n", sub)
	}
	fmt.Fprintf(&sb, " ],\n data: %x\n}", c.Data)
	return sb.String()
}

// readHeader reads a three-byte header entry: kind marker plus a big-endian
// 16-bit size.
func readHeader(b []byte, index int) (kind, size, next int, err error) {
	if index+3 > len(b) {
		return 0, 0, 0, fmt.Errorf("%w: truncated header", ErrUnexpectedEndOfInput)
	}
	return int(b[index]), int(b[index+1])<<8 | int(b[index+2]), index + 3, nil
}

// readMultiHeader reads a list-form header entry: kind marker, a 16-bit
// count, then that many 16-bit sizes.
func readMultiHeader(b []byte, index int) (kind int, sizes []int, next int, err error) {
	if index+3 > len(b) {
		return 0, nil, 0, fmt.Errorf("%w: truncated header", ErrUnexpectedEndOfInput)
	}
	count := int(b[index+1])<<8 | int(b[index+2])
	if index+3+2*count > len(b) {
		return 0, nil, 0, fmt.Errorf("%w: truncated size list", ErrUnexpectedEndOfInput)
	}
	sizes = make([]int, count)
	for i := 0; i < count; i++ {
		sizes[i] = int(b[index+3+2*i])<<8 | int(b[index+4+2*i])
	}
	return int(b[index]), sizes, index + 3 + 2*count, nil
}

func writeUint16(buf *bytes.Buffer, v int) {
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

// OpcodeCount returns the total number of code points across all sections.
// Mutation strategies use it to weight random picks.
func (c *Container) OpcodeCount() int {
	n := 0
	for _, s := range c.Sections {
		for _, b := range s.Blocks {
			n += len(b.Code)
		}
	}
	return n
}
